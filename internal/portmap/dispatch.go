package portmap

import (
	"github.com/marmos91/oncrpc/internal/server"
	"github.com/marmos91/oncrpc/pkg/portmap"
)

// NewProgram builds the dispatch tables for versions 2, 3 and 4.
//
// CALLIT (procedure 5) is not served; it answers PROC_UNAVAIL.
func NewProgram(h *Handler) *server.Program {
	rpcb := server.DispatchTable{
		portmap.ProcNull:    {Name: "NULL", Handler: h.Null},
		portmap.ProcSet:     {Name: "SET", Handler: h.Set},
		portmap.ProcUnset:   {Name: "UNSET", Handler: h.Unset},
		portmap.ProcGetAddr: {Name: "GETADDR", Handler: h.GetAddr},
		portmap.ProcDump:    {Name: "DUMP", Handler: h.Dump},
		portmap.ProcGetTime: {Name: "GETTIME", Handler: h.GetTime},
	}

	return &server.Program{
		Number: portmap.Program,
		Name:   "rpcbind",
		Versions: map[uint32]server.DispatchTable{
			portmap.Version2: {
				portmap.ProcNull:    {Name: "NULL", Handler: h.Null},
				portmap.ProcSet:     {Name: "SET", Handler: h.SetV2},
				portmap.ProcUnset:   {Name: "UNSET", Handler: h.UnsetV2},
				portmap.ProcGetPort: {Name: "GETPORT", Handler: h.GetPort},
				portmap.ProcDump:    {Name: "DUMP", Handler: h.DumpV2},
			},
			portmap.Version3: rpcb,
			portmap.Version4: rpcb,
		},
	}
}
