package repomap

import (
	"sort"
	"strings"
)

// Upstream base URLs which are referenced by more than one entry or by the
// architecture detection of the router.
const (
	UbuntuArchive = "http://archive.ubuntu.com/ubuntu"
	UbuntuPorts   = "http://ports.ubuntu.com/ubuntu-ports"
	DebianArchive = "http://deb.debian.org/debian"
	DebianPorts   = "http://deb.debian.org/debian-ports"
)

// Base returns the standard x86/x64 repositories. Every call returns a fresh
// copy, the built-in groups cannot be modified by callers.
func Base() Group {
	return Group{
		Name: "base",
		Entries: []Entry{
			{Prefix: "/ubuntu", Upstream: UbuntuArchive},
			{Prefix: "/debian", Upstream: DebianArchive},
			{Prefix: "/centos", Upstream: "http://mirror.centos.org/centos"},
			{Prefix: "/fedora", Upstream: "https://mirrors.fedoraproject.org"},
			{Prefix: "/archlinux", Upstream: "https://mirrors.kernel.org/archlinux"},
			{Prefix: "/opensuse", Upstream: "http://download.opensuse.org"},
			{Prefix: "/alpine", Upstream: "https://dl-cdn.alpinelinux.org/alpine"},
			{Prefix: "/epel", Upstream: "https://dl.fedoraproject.org/pub/epel"},
			{Prefix: "/kali", Upstream: "http://http.kali.org"},
		},
	}
}

// ARM returns the repositories for ARM and ARM64 boards.
func ARM() Group {
	return Group{
		Name: "arm",
		Entries: []Entry{
			{Prefix: "/ubuntu-arm", Upstream: UbuntuPorts},
			{Prefix: "/ubuntu-arm64", Upstream: UbuntuPorts},
			{Prefix: "/armbian", Upstream: "https://apt.armbian.com"},
			{Prefix: "/archlinux-arm", Upstream: "https://mirror.archlinuxarm.org"},
			{Prefix: "/debian-arm", Upstream: DebianPorts},
			{Prefix: "/debian-arm64", Upstream: DebianPorts},
			{Prefix: "/raspbian", Upstream: "http://archive.raspbian.org/raspbian"},
		},
	}
}

// RISCV returns the repositories for RISC-V machines.
func RISCV() Group {
	return Group{
		Name: "riscv",
		Entries: []Entry{
			{Prefix: "/debian-riscv", Upstream: DebianPorts},
			{Prefix: "/fedora-riscv", Upstream: "https://dl.fedoraproject.org/pub/alt/risc-v"},
			{Prefix: "/alpine-riscv", Upstream: "https://dl-cdn.alpinelinux.org/alpine/edge/releases/riscv64"},
			{Prefix: "/opensuse-riscv", Upstream: "https://download.opensuse.org/ports/riscv"},
		},
	}
}

// GroupFromMap creates a group from a prefix to upstream map, e.g. taken from
// the configuration file. Entries are sorted by prefix so the result does not
// depend on map iteration order. A trailing slash of an upstream is removed.
func GroupFromMap(name string, upstreams map[string]string) Group {
	prefixes := make([]string, 0, len(upstreams))
	for prefix := range upstreams {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	group := Group{Name: name}
	for _, prefix := range prefixes {
		group.Entries = append(group.Entries, Entry{
			Prefix:   prefix,
			Upstream: strings.TrimRight(upstreams[prefix], "/"),
		})
	}
	return group
}
