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

package iid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseString(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want ID
		err  bool
	}{
		{in: "/", want: ID{}},
		{in: "/system", want: Container("system")},
		{in: "/interfaces/interface[]", want: Container("interfaces").List("interface")},
		{in: "/interfaces/interface[eth0]/l2", want: Container("interfaces").Item("interface", "eth0").Child("l2")},
		{in: "system", err: true},
		{in: "/a//b", err: true},
		{in: "/a/b]", err: true},
		{in: "/a/[x]", err: true},
		{in: "/a/b[x", err: true},
		{in: "/a/b[x[y]]", err: true},
	} {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.err {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
			require.Equal(t, tt.in, got.String())
		})
	}
}

func TestWildcarded(t *testing.T) {
	id := MustParse("/interfaces/interface[eth0]/address[10.0.0.1]")

	require.False(t, id.IsWildcarded())
	require.True(t, id.Wildcarded().IsWildcarded())
	require.Equal(t, "/interfaces/interface[]/address[]", id.Type())
	require.True(t, id.SameType(MustParse("/interfaces/interface[eth1]/address[]")))
	require.True(t, MustParse("/interfaces/interface[eth0]/address[]").IsWildcarded())
	require.False(t, MustParse("/system").IsWildcarded())
}

func TestContains(t *testing.T) {
	for _, tt := range []struct {
		id    string
		other string
		want  bool
	}{
		{id: "/interfaces", other: "/interfaces/interface[eth0]", want: true},
		{id: "/interfaces/interface[]", other: "/interfaces/interface[eth0]/l2", want: true},
		{id: "/interfaces/interface[eth0]", other: "/interfaces/interface[eth0]", want: true},
		{id: "/interfaces/interface[eth0]", other: "/interfaces/interface[]", want: true},
		{id: "/interfaces/interface[eth0]", other: "/interfaces/interface[eth1]/l2", want: false},
		{id: "/interfaces/interface[eth0]/l2", other: "/interfaces/interface[eth0]", want: false},
		{id: "/acls", other: "/interfaces", want: false},
	} {
		t.Run(tt.id+" "+tt.other, func(t *testing.T) {
			require.Equal(t, tt.want, MustParse(tt.id).Contains(MustParse(tt.other)))
		})
	}
}

func TestIsAncestorOf(t *testing.T) {
	acl := MustParse("/acls/acl[]")

	require.True(t, acl.IsAncestorOf(MustParse("/acls/acl[]/entry[]")))
	require.True(t, acl.IsAncestorOf(MustParse("/acls/acl[x]/entry[1]/match")))
	require.False(t, acl.IsAncestorOf(acl))
	require.False(t, acl.IsAncestorOf(MustParse("/acls")))
	require.False(t, acl.IsAncestorOf(MustParse("/interfaces/interface[]")))
}

func TestCutNextWithLastKey(t *testing.T) {
	id := MustParse("/interfaces/interface[eth0]/address[10.0.0.1]")
	typ := MustParse("/interfaces/interface[]")

	cut, ok := id.CutTo(typ)
	require.True(t, ok)
	require.Equal(t, "/interfaces/interface[eth0]", cut.String())

	_, ok = id.CutTo(MustParse("/acls/acl[]"))
	require.False(t, ok)

	next, ok := id.Next(typ)
	require.True(t, ok)
	require.Equal(t, PathArg{Type: "address", Key: "10.0.0.1", List: true}, next)

	_, ok = id.Next(id)
	require.False(t, ok)

	require.Equal(t, "/interfaces/interface[eth7]", typ.WithLastKey("eth7").String())
	require.Equal(t, "/system", MustParse("/system").WithLastKey("x").String())
	require.Equal(t, "/interfaces", id.Cut(1).String())
	require.Equal(t, "/", id.Cut(-1).String())
	require.True(t, id.Cut(10).Equal(id))
}

func TestImmutable(t *testing.T) {
	base := Container("interfaces")
	a := base.Item("interface", "a")
	b := base.Item("interface", "b")

	require.Equal(t, "/interfaces", base.String())
	require.Equal(t, "/interfaces/interface[a]", a.String())
	require.Equal(t, "/interfaces/interface[b]", b.String())

	args := a.Args()
	args[0].Type = "changed"
	require.Equal(t, "/interfaces/interface[a]", a.String())
}

func TestText(t *testing.T) {
	id := MustParse("/interfaces/interface[eth0]")

	data, err := id.MarshalText()
	require.NoError(t, err)

	parsed := ID{}
	require.NoError(t, parsed.UnmarshalText(data))
	require.True(t, id.Equal(parsed))
	require.Error(t, parsed.UnmarshalText([]byte("bad")))
}
