package output

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/marmos91/oncrpc/pkg/portmap"
)

// wellKnownPrograms names the programs rpcinfo users expect to recognize.
var wellKnownPrograms = map[uint32]string{
	100000: "portmapper",
	100003: "nfs",
	100005: "mountd",
	100021: "nlockmgr",
	100024: "status",
	100227: "nfs_acl",
	200000: "rquotad",
}

// ProgramName returns the conventional name of prog, or "-" if unknown.
func ProgramName(prog uint32) string {
	if name, ok := wellKnownPrograms[prog]; ok {
		return name
	}
	return "-"
}

// Registration is one portmapper entry as printed by "oncrpc dump".
type Registration struct {
	Program uint32 `json:"program" yaml:"program"`
	Version uint32 `json:"version" yaml:"version"`
	NetID   string `json:"netid" yaml:"netid"`
	Addr    string `json:"addr" yaml:"addr"`
	Port    uint16 `json:"port" yaml:"port"`
	Owner   string `json:"owner" yaml:"owner"`
	Service string `json:"service" yaml:"service"`
}

// Registrations is a portmapper dump.
type Registrations []Registration

// NewRegistrations converts a dump. Entries with an unparsable address
// keep Port 0.
func NewRegistrations(list []portmap.RPCB) Registrations {
	out := make(Registrations, 0, len(list))
	for _, b := range list {
		r := Registration{
			Program: b.Program,
			Version: b.Version,
			NetID:   b.NetID,
			Addr:    b.Addr,
			Owner:   b.Owner,
			Service: ProgramName(b.Program),
		}
		if ap, err := portmap.ParseUniversalAddr(b.Addr); err == nil {
			r.Port = ap.Port()
		}
		out = append(out, r)
	}
	return out
}

func (r Registrations) Headers() []string {
	return []string{"Program", "Vers", "NetID", "Port", "Address", "Owner", "Service"}
}

func (r Registrations) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, e := range r {
		port := "-"
		if e.Port != 0 {
			port = strconv.Itoa(int(e.Port))
		}
		rows = append(rows, []string{
			u32(e.Program), u32(e.Version), e.NetID, port, e.Addr, e.Owner, e.Service,
		})
	}
	return rows
}

// Resolution is the answer to a GETADDR lookup.
type Resolution struct {
	Host    string `json:"host" yaml:"host"`
	Program uint32 `json:"program" yaml:"program"`
	Version uint32 `json:"version" yaml:"version"`
	Address string `json:"address" yaml:"address"`
	Port    uint16 `json:"port" yaml:"port"`
}

func (r Resolution) Headers() []string {
	return []string{"Host", "Program", "Vers", "Address", "Port"}
}

func (r Resolution) Rows() [][]string {
	return [][]string{{r.Host, u32(r.Program), u32(r.Version), r.Address, strconv.Itoa(int(r.Port))}}
}

// BenchReport summarizes a load run.
type BenchReport struct {
	Sessions    int           `json:"sessions" yaml:"sessions"`
	Calls       int           `json:"calls" yaml:"calls"`
	Errors      int           `json:"errors" yaml:"errors"`
	Elapsed     time.Duration `json:"elapsed_ns" yaml:"elapsed"`
	CallsPerSec float64       `json:"calls_per_sec" yaml:"calls_per_sec"`
	Min         time.Duration `json:"min_ns" yaml:"min"`
	P50         time.Duration `json:"p50_ns" yaml:"p50"`
	P99         time.Duration `json:"p99_ns" yaml:"p99"`
	Max         time.Duration `json:"max_ns" yaml:"max"`
}

// NewBenchReport computes the summary of successful call latencies.
// latencies is sorted in place.
func NewBenchReport(sessions int, latencies []time.Duration, failed int, elapsed time.Duration) BenchReport {
	rep := BenchReport{
		Sessions: sessions,
		Calls:    len(latencies) + failed,
		Errors:   failed,
		Elapsed:  elapsed,
	}
	if elapsed > 0 {
		rep.CallsPerSec = float64(len(latencies)) / elapsed.Seconds()
	}
	if len(latencies) == 0 {
		return rep
	}

	slices.Sort(latencies)
	rep.Min = latencies[0]
	rep.Max = latencies[len(latencies)-1]
	rep.P50 = percentile(latencies, 50)
	rep.P99 = percentile(latencies, 99)
	return rep
}

// percentile uses the nearest-rank method on a sorted slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func (b BenchReport) Headers() []string {
	return []string{"Sessions", "Calls", "Errors", "Elapsed", "Calls/s", "Min", "P50", "P99", "Max"}
}

func (b BenchReport) Rows() [][]string {
	return [][]string{{
		strconv.Itoa(b.Sessions),
		strconv.Itoa(b.Calls),
		strconv.Itoa(b.Errors),
		b.Elapsed.Round(time.Millisecond).String(),
		fmt.Sprintf("%.0f", b.CallsPerSec),
		b.Min.String(),
		b.P50.String(),
		b.P99.String(),
		b.Max.String(),
	}}
}

func u32(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
