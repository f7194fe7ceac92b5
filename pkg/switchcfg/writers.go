// Copyright 2023 Hedgehog
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package switchcfg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.githedgehog.com/translator/pkg/device/gnmi"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/translate/write"
	"go.githedgehog.com/translator/pkg/translate/write/composite"
)

const (
	MappingInterface = "interface"

	pathSystemConfig = "/openconfig-system:system/config"
	pathInterface    = "/openconfig-interfaces:interfaces/interface[name=%s]"
	pathIPv4Address  = pathInterface + "/subinterfaces/subinterface[index=0]/openconfig-if-ip:ipv4/addresses/address[ip=%s]"
	pathSwitchedVLAN = pathInterface + "/openconfig-if-ethernet:ethernet/openconfig-vlan:switched-vlan"
	pathACLSet       = "/openconfig-acl:acl/acl-sets/acl-set[name=%s][type=ACL_IPV4]"
	pathACLBinding   = "/openconfig-acl:acl/interfaces/interface[id=%s]"
)

var ErrNoSession = errors.New("no gnmi session")

func session(wctx write.Context) (gnmi.Setter, error) {
	if wctx == nil {
		return nil, ErrNoSession
	}

	setter, ok := wctx.Session().(gnmi.Setter)
	if !ok || setter == nil {
		return nil, errors.Wrapf(ErrNoSession, "unexpected session %T", wctx.Session())
	}

	return setter, nil
}

func set(ctx context.Context, wctx write.Context, entries ...*gnmi.Entry) error {
	setter, err := session(wctx)
	if err != nil {
		return err
	}

	return setter.Set(ctx, entries...) //nolint:wrapcheck
}

// key returns the key of the list path arg of the given type in id
func key(id iid.ID, typ string) string {
	for _, arg := range id.Args() {
		if arg.Type == typ {
			return arg.Key
		}
	}

	return ""
}

func newSystemWriter() (*composite.RootWriter[*System], error) {
	entry := func(system *System) *gnmi.Entry {
		return gnmi.Update(fmt.Sprintf("Hostname %s", system.Hostname), pathSystemConfig, map[string]any{
			"openconfig-system:config": map[string]any{
				"hostname":     system.Hostname,
				"motd-banner":  system.Banner,
				"login-banner": system.Banner,
			},
		})
	}

	return composite.NewRootWriter[*System](SystemType, &composite.Funcs[*System]{
		Write: func(ctx context.Context, _ iid.ID, system *System, wctx write.Context) error {
			return set(ctx, wctx, entry(system))
		},
		Update: func(ctx context.Context, _ iid.ID, _, system *System, wctx write.Context) error {
			return set(ctx, wctx, entry(system))
		},
		Delete: func(ctx context.Context, _ iid.ID, system *System, wctx write.Context) error {
			return set(ctx, wctx, gnmi.Delete(fmt.Sprintf("Hostname %s", system.Hostname), pathSystemConfig))
		},
	})
}

type interfaceCustomizer struct{}

var _ composite.ListCustomizer[*Interface] = interfaceCustomizer{}

func (interfaceCustomizer) Key(iface *Interface) string {
	return iface.Name
}

func interfaceEntries(iface *Interface) []*gnmi.Entry {
	config := map[string]any{
		"name":    iface.Name,
		"enabled": iface.Enabled,
	}
	if iface.Description != "" {
		config["description"] = iface.Description
	}
	if iface.MTU != 0 {
		config["mtu"] = iface.MTU
	}

	res := []*gnmi.Entry{
		gnmi.Replace(fmt.Sprintf("Interface %s", iface.Name), fmt.Sprintf(pathInterface, iface.Name)+"/config", map[string]any{
			"openconfig-interfaces:config": config,
		}),
	}

	if iface.IngressACL != "" {
		res = append(res, gnmi.Update(fmt.Sprintf("Interface %s ingress acl %s", iface.Name, iface.IngressACL), fmt.Sprintf(pathACLBinding, iface.Name), map[string]any{
			"openconfig-acl:interface": []any{
				map[string]any{
					"id":     iface.Name,
					"config": map[string]any{"id": iface.Name},
					"ingress-acl-sets": map[string]any{
						"ingress-acl-set": []any{
							map[string]any{
								"set-name": iface.IngressACL,
								"type":     "ACL_IPV4",
								"config":   map[string]any{"set-name": iface.IngressACL, "type": "ACL_IPV4"},
							},
						},
					},
				},
			},
		}))
	}

	return res
}

func (interfaceCustomizer) WriteCurrentAttributes(ctx context.Context, id iid.ID, iface *Interface, wctx write.Context) error {
	idx := wctx.Mapping().Assign(MappingInterface, iface.Name)
	slog.Debug("Interface index assigned", "id", id, "index", idx)

	return set(ctx, wctx, interfaceEntries(iface)...)
}

func (interfaceCustomizer) UpdateCurrentAttributes(ctx context.Context, _ iid.ID, before, after *Interface, wctx write.Context) error {
	wctx.Mapping().Assign(MappingInterface, after.Name)

	entries := interfaceEntries(after)
	if before.IngressACL != "" && after.IngressACL == "" {
		entries = append(entries, gnmi.Delete(fmt.Sprintf("Interface %s ingress acl %s", before.Name, before.IngressACL), fmt.Sprintf(pathACLBinding, before.Name)))
	}

	return set(ctx, wctx, entries...)
}

func (interfaceCustomizer) DeleteCurrentAttributes(ctx context.Context, _ iid.ID, iface *Interface, wctx write.Context) error {
	entries := []*gnmi.Entry{}
	if iface.IngressACL != "" {
		entries = append(entries, gnmi.Delete(fmt.Sprintf("Interface %s ingress acl %s", iface.Name, iface.IngressACL), fmt.Sprintf(pathACLBinding, iface.Name)))
	}
	entries = append(entries, gnmi.Delete(fmt.Sprintf("Interface %s", iface.Name), fmt.Sprintf(pathInterface, iface.Name)+"/config"))

	if err := set(ctx, wctx, entries...); err != nil {
		return err
	}

	wctx.Mapping().Remove(MappingInterface, iface.Name)

	return nil
}

type addressCustomizer struct{}

var _ composite.ListCustomizer[*Address] = addressCustomizer{}

func (addressCustomizer) Key(addr *Address) string {
	return addr.IP
}

func addressEntry(ifaceName string, addr *Address) *gnmi.Entry {
	return gnmi.Update(fmt.Sprintf("Interface %s address %s/%d", ifaceName, addr.IP, addr.PrefixLen), fmt.Sprintf(pathIPv4Address, ifaceName, addr.IP), map[string]any{
		"openconfig-if-ip:address": []any{
			map[string]any{
				"ip": addr.IP,
				"config": map[string]any{
					"ip":            addr.IP,
					"prefix-length": addr.PrefixLen,
				},
			},
		},
	})
}

func interfaceOf(id iid.ID, wctx write.Context) (string, error) {
	name := key(id, InterfaceType.Target())
	if _, ok := wctx.Mapping().Index(MappingInterface, name); !ok {
		return "", errors.Errorf("interface %s has no index assigned", name)
	}

	return name, nil
}

func (addressCustomizer) WriteCurrentAttributes(ctx context.Context, id iid.ID, addr *Address, wctx write.Context) error {
	name, err := interfaceOf(id, wctx)
	if err != nil {
		return err
	}

	return set(ctx, wctx, addressEntry(name, addr))
}

func (addressCustomizer) UpdateCurrentAttributes(ctx context.Context, id iid.ID, _, after *Address, wctx write.Context) error {
	name, err := interfaceOf(id, wctx)
	if err != nil {
		return err
	}

	return set(ctx, wctx, addressEntry(name, after))
}

func (addressCustomizer) DeleteCurrentAttributes(ctx context.Context, id iid.ID, addr *Address, wctx write.Context) error {
	name, err := interfaceOf(id, wctx)
	if err != nil {
		return err
	}

	return set(ctx, wctx, gnmi.Delete(fmt.Sprintf("Interface %s address %s", name, addr.IP), fmt.Sprintf(pathIPv4Address, name, addr.IP)))
}

func newL2Writer() (*composite.ChildWriter[*Interface, *L2], error) {
	entry := func(name string, l2 *L2) *gnmi.Entry {
		return gnmi.Replace(fmt.Sprintf("Interface %s access vlan %d", name, l2.AccessVLAN), fmt.Sprintf(pathSwitchedVLAN, name)+"/config", map[string]any{
			"openconfig-vlan:config": map[string]any{
				"interface-mode": "ACCESS",
				"access-vlan":    l2.AccessVLAN,
			},
		})
	}

	return composite.NewChildWriter[*Interface, *L2](L2Type, &composite.Funcs[*L2]{
		Write: func(ctx context.Context, id iid.ID, l2 *L2, wctx write.Context) error {
			return set(ctx, wctx, entry(key(id, InterfaceType.Target()), l2))
		},
		Update: func(ctx context.Context, id iid.ID, _, l2 *L2, wctx write.Context) error {
			return set(ctx, wctx, entry(key(id, InterfaceType.Target()), l2))
		},
		Delete: func(ctx context.Context, id iid.ID, l2 *L2, wctx write.Context) error {
			name := key(id, InterfaceType.Target())

			return set(ctx, wctx, gnmi.Delete(fmt.Sprintf("Interface %s access vlan %d", name, l2.AccessVLAN), fmt.Sprintf(pathSwitchedVLAN, name)+"/config"))
		},
	}, func(iface *Interface) (*L2, bool) {
		return iface.L2, iface.L2 != nil
	})
}

func newInterfaceWriter() (*composite.ListWriter[*Interface], error) {
	addresses, err := composite.NewChildListWriter[*Interface, *Address](AddressType, addressCustomizer{}, func(iface *Interface) ([]*Address, bool) {
		return iface.Addresses, len(iface.Addresses) > 0
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create address writer")
	}

	l2, err := newL2Writer()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create l2 writer")
	}

	return composite.NewListWriter[*Interface](InterfaceType, interfaceCustomizer{},
		composite.WithChildren[*Interface](addresses),
		composite.WithAugmentations[*Interface](l2),
	)
}

type aclCustomizer struct{}

var _ composite.ListCustomizer[*ACL] = aclCustomizer{}

func (aclCustomizer) Key(acl *ACL) string {
	return acl.Name
}

func aclEntry(acl *ACL) *gnmi.Entry {
	entries := lo.Map(acl.Entries, func(entry *ACLEntry, _ int) any {
		ipv4 := map[string]any{}
		if entry.Protocol != 0 {
			ipv4["protocol"] = entry.Protocol
		}
		if entry.Source != "" {
			ipv4["source-address"] = entry.Source
		}
		if entry.Destination != "" {
			ipv4["destination-address"] = entry.Destination
		}

		forwarding := "ACCEPT"
		if entry.Action == ACLActionDrop {
			forwarding = "DROP"
		}

		return map[string]any{
			"sequence-id": entry.Seq,
			"config":      map[string]any{"sequence-id": entry.Seq},
			"ipv4":        map[string]any{"config": ipv4},
			"actions":     map[string]any{"config": map[string]any{"forwarding-action": forwarding}},
		}
	})

	return gnmi.Replace(fmt.Sprintf("ACL %s (%d entries)", acl.Name, len(acl.Entries)), fmt.Sprintf(pathACLSet, acl.Name), map[string]any{
		"openconfig-acl:acl-set": []any{
			map[string]any{
				"name":        acl.Name,
				"type":        "ACL_IPV4",
				"config":      map[string]any{"name": acl.Name, "type": "ACL_IPV4"},
				"acl-entries": map[string]any{"acl-entry": entries},
			},
		},
	})
}

// ACL entries aren't handled by a separate writer, the whole set is replaced
func (aclCustomizer) WriteCurrentAttributes(ctx context.Context, _ iid.ID, acl *ACL, wctx write.Context) error {
	return set(ctx, wctx, aclEntry(acl))
}

func (aclCustomizer) UpdateCurrentAttributes(ctx context.Context, _ iid.ID, _, after *ACL, wctx write.Context) error {
	return set(ctx, wctx, aclEntry(after))
}

func (aclCustomizer) DeleteCurrentAttributes(ctx context.Context, _ iid.ID, acl *ACL, wctx write.Context) error {
	return set(ctx, wctx, gnmi.Delete(fmt.Sprintf("ACL %s", acl.Name), fmt.Sprintf(pathACLSet, acl.Name)))
}

func newACLWriter() (*composite.ListWriter[*ACL], error) {
	return composite.NewListWriter[*ACL](ACLType, aclCustomizer{})
}
