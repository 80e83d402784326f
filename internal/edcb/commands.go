package edcb

// Command IDs, taken from the original recorder daemon's __CMD_* table
// (the subset this core actually consumes, per spec.md §4.A).
const (
	CmdEnumService      = 1021
	CmdEnumPgInfoEx     = 1029
	CmdEnumReserve2     = 2011
	CmdAddReserve2      = 2013
	CmdChgReserve2      = 2015
	CmdDelReserve       = 1014
	CmdEnumAutoAdd2     = 2131
	CmdAddAutoAdd       = 1031
	CmdChgAutoAdd       = 1032
	CmdDelAutoAdd       = 1033
	CmdFileCopy         = 1060
	CmdFileCopy2        = 1061
	CmdGetRecFilePath   = 1052
	CmdNwPlayTFOpen     = 1087
	CmdNwPlayClose      = 1081
	CmdNwTVIDSetCh      = 1073
	CmdNwTVIDClose      = 1074
	CmdRelayViewStream  = 301
	CmdGetStatusNotify2 = 2051
)

// v2Commands lists commands whose payload requires the u16 ProtocolVersion
// header, per spec.md §4.A.
var v2Commands = map[uint32]bool{
	CmdEnumPgInfoEx:     true,
	CmdEnumReserve2:     true,
	CmdAddReserve2:      true,
	CmdChgReserve2:      true,
	CmdEnumAutoAdd2:     true,
	CmdGetStatusNotify2: true,
}

func isV2(cmd uint32) bool { return v2Commands[cmd] }
