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

// Package switchcfg is the switch configuration model together with the
// writers translating it into gNMI set requests.
package switchcfg

import (
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.githedgehog.com/translator/pkg/translate/datatree"
	"go.githedgehog.com/translator/pkg/translate/iid"
	"go.githedgehog.com/translator/pkg/util/iputil"
	"sigs.k8s.io/yaml"
)

var (
	SystemType    = iid.Container("system")
	InterfaceType = iid.Container("interfaces").List("interface")
	AddressType   = InterfaceType.List("address")
	L2Type        = InterfaceType.Child("l2")
	ACLType       = iid.Container("acls").List("acl")
	ACLEntryType  = ACLType.List("entry")
)

const (
	ACLActionAccept = "accept"
	ACLActionDrop   = "drop"
)

type Config struct {
	System     *System      `json:"system,omitempty"`
	Interfaces []*Interface `json:"interfaces,omitempty"`
	ACLs       []*ACL       `json:"acls,omitempty"`
}

type System struct {
	Hostname string `json:"hostname,omitempty"`
	Banner   string `json:"banner,omitempty"`
}

type Interface struct {
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Enabled     bool       `json:"enabled,omitempty"`
	MTU         uint16     `json:"mtu,omitempty"`
	IngressACL  string     `json:"ingressACL,omitempty"`
	Addresses   []*Address `json:"addresses,omitempty"`
	L2          *L2        `json:"l2,omitempty"`
}

type Address struct {
	IP        string `json:"ip,omitempty"`
	PrefixLen uint8  `json:"prefixLen,omitempty"`
}

type L2 struct {
	AccessVLAN uint16 `json:"accessVLAN,omitempty"`
}

type ACL struct {
	Name    string      `json:"name,omitempty"`
	Entries []*ACLEntry `json:"entries,omitempty"`
}

type ACLEntry struct {
	Seq         uint32 `json:"seq,omitempty"`
	Action      string `json:"action,omitempty"`
	Protocol    uint8  `json:"protocol,omitempty"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config %s", path)
	}

	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg == nil {
		return nil
	}

	if cfg.System != nil && cfg.System.Hostname == "" {
		return errors.Errorf("system hostname is required")
	}

	aclNames := map[string]bool{}
	for _, acl := range cfg.ACLs {
		if acl == nil || acl.Name == "" {
			return errors.Errorf("acl name is required")
		}
		if err := validKey(acl.Name); err != nil {
			return errors.Wrapf(err, "acl %s", acl.Name)
		}
		if aclNames[acl.Name] {
			return errors.Errorf("duplicate acl %s", acl.Name)
		}
		aclNames[acl.Name] = true

		if dups := lo.FindDuplicatesBy(acl.Entries, func(entry *ACLEntry) uint32 { return entry.Seq }); len(dups) > 0 {
			return errors.Errorf("duplicate entry seq %d in acl %s", dups[0].Seq, acl.Name)
		}
		for _, entry := range acl.Entries {
			if err := entry.validate(); err != nil {
				return errors.Wrapf(err, "acl %s entry %d", acl.Name, entry.Seq)
			}
		}
	}

	ifaceNames := map[string]bool{}
	for _, iface := range cfg.Interfaces {
		if iface == nil || iface.Name == "" {
			return errors.Errorf("interface name is required")
		}
		if err := validKey(iface.Name); err != nil {
			return errors.Wrapf(err, "interface %s", iface.Name)
		}
		if ifaceNames[iface.Name] {
			return errors.Errorf("duplicate interface %s", iface.Name)
		}
		ifaceNames[iface.Name] = true

		if iface.IngressACL != "" && !aclNames[iface.IngressACL] {
			return errors.Errorf("interface %s references unknown acl %s", iface.Name, iface.IngressACL)
		}
		if iface.L2 != nil && len(iface.Addresses) > 0 {
			return errors.Errorf("interface %s can't have both l2 and addresses", iface.Name)
		}
		if iface.L2 != nil && (iface.L2.AccessVLAN < 1 || iface.L2.AccessVLAN > 4094) {
			return errors.Errorf("interface %s access vlan %d is out of range", iface.Name, iface.L2.AccessVLAN)
		}

		if dups := lo.FindDuplicatesBy(iface.Addresses, func(addr *Address) string { return addr.IP }); len(dups) > 0 {
			return errors.Errorf("duplicate address %s on interface %s", dups[0].IP, iface.Name)
		}
		for _, addr := range iface.Addresses {
			if _, err := addr.Prefix(); err != nil {
				return errors.Wrapf(err, "interface %s", iface.Name)
			}
			if err := iputil.ValidateHost(addr.IP, addr.PrefixLen); err != nil {
				return errors.Wrapf(err, "interface %s", iface.Name)
			}
		}
	}

	return nil
}

func validKey(key string) error {
	if strings.ContainsAny(key, "/[]") {
		return errors.Errorf("name %q can't contain '/', '[' or ']'", key)
	}

	return nil
}

func (addr *Address) Prefix() (netip.Prefix, error) {
	ip, err := netip.ParseAddr(addr.IP)
	if err != nil {
		return netip.Prefix{}, errors.Wrapf(err, "invalid address %s", addr.IP)
	}

	prefix, err := ip.Prefix(int(addr.PrefixLen))
	if err != nil || addr.PrefixLen == 0 {
		return netip.Prefix{}, errors.Errorf("invalid prefix length %d for %s", addr.PrefixLen, addr.IP)
	}

	return prefix, nil
}

func (entry *ACLEntry) validate() error {
	if entry.Seq == 0 {
		return errors.Errorf("seq is required")
	}
	if entry.Action != ACLActionAccept && entry.Action != ACLActionDrop {
		return errors.Errorf("unknown action %q", entry.Action)
	}
	for _, prefix := range []string{entry.Source, entry.Destination} {
		if prefix == "" {
			continue
		}
		if _, err := netip.ParsePrefix(prefix); err != nil {
			return errors.Wrapf(err, "invalid prefix %s", prefix)
		}
	}

	return nil
}

// Flatten returns the data tree nodes for the node types with writers
// registered on their own or through the subtree writers
func Flatten(cfg *Config) []datatree.Node {
	if cfg == nil {
		return nil
	}

	res := []datatree.Node{}

	if cfg.System != nil {
		res = append(res, datatree.Node{ID: SystemType, Value: cfg.System})
	}

	for _, acl := range cfg.ACLs {
		aclID := ACLType.WithLastKey(acl.Name)
		res = append(res, datatree.Node{ID: aclID, Value: acl})

		for _, entry := range acl.Entries {
			res = append(res, datatree.Node{
				ID:    aclID.Item("entry", strconv.FormatUint(uint64(entry.Seq), 10)),
				Value: entry,
			})
		}
	}

	for _, iface := range cfg.Interfaces {
		res = append(res, datatree.Node{ID: InterfaceType.WithLastKey(iface.Name), Value: iface})
	}

	return res
}

// Store returns a new data tree store with the flattened config
func Store(cfg *Config) (*datatree.Store, error) {
	store, err := datatree.NewStore()
	if err != nil {
		return nil, err
	}

	if err := store.Put(Flatten(cfg)...); err != nil {
		return nil, errors.Wrapf(err, "failed to store config")
	}

	return store, nil
}
