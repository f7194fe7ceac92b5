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

package iputil

import (
	"fmt"
	"net"

	cidrlib "github.com/apparentlymart/go-cidr/cidr"
	"github.com/pkg/errors"
)

// ValidateHost checks that ip with the prefix length is usable as an
// interface address, i.e. it isn't the network or broadcast address of its
// subnet. Point-to-point prefixes (/31, /32 and /127, /128) have no such
// addresses.
func ValidateHost(ip string, prefixLen uint8) error {
	cidr := fmt.Sprintf("%s/%d", ip, prefixLen)

	addr, subnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return errors.Wrapf(err, "failed to parse cidr %s", cidr)
	}

	ones, bits := subnet.Mask.Size()
	if bits-ones <= 1 {
		return nil
	}

	first, last := cidrlib.AddressRange(subnet)
	if addr.Equal(first) {
		return errors.Errorf("%s is the network address of %s", ip, subnet)
	}
	if bits == 8*net.IPv4len && addr.Equal(last) {
		return errors.Errorf("%s is the broadcast address of %s", ip, subnet)
	}

	return nil
}
