package repomap

import (
	"strings"
	"testing"
)

func TestDefaultTableMatchesDeclaredRepositories(t *testing.T) {
	want := map[string]string{
		"/ubuntu":         "http://archive.ubuntu.com/ubuntu",
		"/debian":         "http://deb.debian.org/debian",
		"/centos":         "http://mirror.centos.org/centos",
		"/fedora":         "https://mirrors.fedoraproject.org",
		"/archlinux":      "https://mirrors.kernel.org/archlinux",
		"/opensuse":       "http://download.opensuse.org",
		"/alpine":         "https://dl-cdn.alpinelinux.org/alpine",
		"/epel":           "https://dl.fedoraproject.org/pub/epel",
		"/kali":           "http://http.kali.org",
		"/ubuntu-arm":     "http://ports.ubuntu.com/ubuntu-ports",
		"/ubuntu-arm64":   "http://ports.ubuntu.com/ubuntu-ports",
		"/armbian":        "https://apt.armbian.com",
		"/archlinux-arm":  "https://mirror.archlinuxarm.org",
		"/debian-arm":     "http://deb.debian.org/debian-ports",
		"/debian-arm64":   "http://deb.debian.org/debian-ports",
		"/raspbian":       "http://archive.raspbian.org/raspbian",
		"/debian-riscv":   "http://deb.debian.org/debian-ports",
		"/fedora-riscv":   "https://dl.fedoraproject.org/pub/alt/risc-v",
		"/alpine-riscv":   "https://dl-cdn.alpinelinux.org/alpine/edge/releases/riscv64",
		"/opensuse-riscv": "https://download.opensuse.org/ports/riscv",
	}

	table := Default()
	if table.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", table.Len(), len(want))
	}

	for prefix, upstream := range want {
		entry, ok := table.Entry(prefix)
		if !ok {
			t.Fatalf("Entry(%q) not found", prefix)
		}
		if entry.Upstream != upstream {
			t.Fatalf("Entry(%q).Upstream = %q, want %q", prefix, entry.Upstream, upstream)
		}
	}
}

func TestDefaultTableIsDisjoint(t *testing.T) {
	table := Default()

	if collisions := table.Collisions(); len(collisions) != 0 {
		t.Fatalf("Collisions() = %v, want none", collisions)
	}
	if err := table.CheckDisjoint(); err != nil {
		t.Fatalf("CheckDisjoint() error = %v", err)
	}
}

func TestDefaultTableEntriesAreWellFormed(t *testing.T) {
	for _, entry := range Default().Entries() {
		if !strings.HasPrefix(entry.Prefix, "/") || strings.HasSuffix(entry.Prefix, "/") {
			t.Fatalf("malformed prefix %q", entry.Prefix)
		}
		if !strings.HasPrefix(entry.Upstream, "http://") && !strings.HasPrefix(entry.Upstream, "https://") {
			t.Fatalf("upstream %q of %q is not absolute", entry.Upstream, entry.Prefix)
		}
		if strings.HasSuffix(entry.Upstream, "/") {
			t.Fatalf("upstream %q of %q ends with /", entry.Upstream, entry.Prefix)
		}
	}
}

func TestBuildLaterGroupWins(t *testing.T) {
	first := Group{Name: "first", Entries: []Entry{
		{Prefix: "/a", Upstream: "http://one.example.com"},
		{Prefix: "/b", Upstream: "http://b.example.com"},
	}}
	second := Group{Name: "second", Entries: []Entry{
		{Prefix: "/a", Upstream: "http://two.example.com"},
	}}

	table, err := Build(first, second)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	entry, ok := table.Entry("/a")
	if !ok {
		t.Fatalf("Entry(/a) not found")
	}
	if entry.Upstream != "http://two.example.com" {
		t.Fatalf("Upstream = %q, want %q", entry.Upstream, "http://two.example.com")
	}
	if entry.Group != "second" {
		t.Fatalf("Group = %q, want %q", entry.Group, "second")
	}

	// The replaced prefix keeps its original position.
	entries := table.Entries()
	if len(entries) != 2 || entries[0].Prefix != "/a" || entries[1].Prefix != "/b" {
		t.Fatalf("Entries() = %v, want /a then /b", entries)
	}

	// Reversed order must reverse the winner.
	table, err = Build(second, first)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if entry, _ := table.Entry("/a"); entry.Upstream != "http://one.example.com" {
		t.Fatalf("Upstream = %q, want %q", entry.Upstream, "http://one.example.com")
	}
}

func TestBuildRejectsMalformedEntries(t *testing.T) {
	tests := []Entry{
		{Prefix: "ubuntu", Upstream: "http://example.com"},
		{Prefix: "/ubuntu/", Upstream: "http://example.com"},
		{Prefix: "/", Upstream: "http://example.com"},
		{Prefix: "/ubuntu", Upstream: ""},
		{Prefix: "/ubuntu", Upstream: "http://example.com/"},
	}

	for _, entry := range tests {
		if _, err := Build(Group{Name: "bad", Entries: []Entry{entry}}); err == nil {
			t.Fatalf("Build(%+v) expected error", entry)
		}
	}
}

func TestLookup(t *testing.T) {
	table := Default()

	tests := []struct {
		path   string
		prefix string
		ok     bool
	}{
		{path: "/alpine", prefix: "/alpine", ok: true},
		{path: "/alpine/", prefix: "/alpine", ok: true},
		{path: "/alpine/v3.19/main", prefix: "/alpine", ok: true},
		{path: "/alpine-riscv/main", prefix: "/alpine-riscv", ok: true},
		{path: "/debian-arm/pool/x", prefix: "/debian-arm", ok: true},
		{path: "/alpinelinux/main", ok: false},
		{path: "/unknownrepo/x", ok: false},
		{path: "/", ok: false},
		{path: "", ok: false},
	}

	for _, tt := range tests {
		entry, ok := table.Lookup(tt.path)
		if ok != tt.ok {
			t.Fatalf("Lookup(%q) ok = %v, want %v", tt.path, ok, tt.ok)
		}
		if ok && entry.Prefix != tt.prefix {
			t.Fatalf("Lookup(%q) prefix = %q, want %q", tt.path, entry.Prefix, tt.prefix)
		}
	}
}

func TestLookupPrefersLongestPrefix(t *testing.T) {
	table, err := Build(Group{Name: "nested", Entries: []Entry{
		{Prefix: "/debian", Upstream: "http://archive.example.com"},
		{Prefix: "/debian/ports", Upstream: "http://ports.example.com"},
	}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	entry, ok := table.Lookup("/debian/ports/pool/x")
	if !ok || entry.Prefix != "/debian/ports" {
		t.Fatalf("Lookup() = %+v, %v, want /debian/ports", entry, ok)
	}

	collisions := table.Collisions()
	if len(collisions) != 1 || collisions[0] != "/debian -> /debian/ports" {
		t.Fatalf("Collisions() = %v, want [/debian -> /debian/ports]", collisions)
	}
	if err := table.CheckDisjoint(); err == nil {
		t.Fatalf("CheckDisjoint() expected error")
	}
}

func TestGroupFromMapIsSorted(t *testing.T) {
	group := GroupFromMap("overrides", map[string]string{
		"/ubuntu": "http://de.archive.ubuntu.com/ubuntu/",
		"/alpine": "https://alpine.example.com",
		"/debian": "http://ftp.de.debian.org/debian",
	})

	if group.Name != "overrides" {
		t.Fatalf("Name = %q, want overrides", group.Name)
	}

	want := []Entry{
		{Prefix: "/alpine", Upstream: "https://alpine.example.com"},
		{Prefix: "/debian", Upstream: "http://ftp.de.debian.org/debian"},
		{Prefix: "/ubuntu", Upstream: "http://de.archive.ubuntu.com/ubuntu"},
	}
	if len(group.Entries) != len(want) {
		t.Fatalf("len(Entries) = %d, want %d", len(group.Entries), len(want))
	}
	for i := range want {
		if group.Entries[i] != want[i] {
			t.Fatalf("Entries[%d] = %+v, want %+v", i, group.Entries[i], want[i])
		}
	}
}

func TestBuiltInGroupsAreCopies(t *testing.T) {
	group := Base()
	group.Entries[0].Upstream = "http://changed.example.com"
	group.Entries = append(group.Entries, Entry{Prefix: "/extra", Upstream: "http://extra.example.com"})

	if got := Base().Entries[0].Upstream; got != UbuntuArchive {
		t.Fatalf("Base().Entries[0].Upstream = %q, want %q", got, UbuntuArchive)
	}

	table := Default()
	if _, ok := table.Entry("/extra"); ok {
		t.Fatalf("modified group leaked into Default()")
	}
	if entry, _ := table.Entry("/ubuntu"); entry.Upstream != UbuntuArchive {
		t.Fatalf("Entry(/ubuntu).Upstream = %q, want %q", entry.Upstream, UbuntuArchive)
	}
}
