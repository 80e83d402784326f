package edcb

import "time"

// ServiceInfo mirrors one entry of EnumService's vec<ServiceInfo> response.
type ServiceInfo struct {
	OriginalNetworkID uint16
	TransportStreamID uint16
	ServiceID         uint16
	ServiceType       uint8
	PartialReception  bool
	ServiceName       string
	NetworkName       string
	RemoteControlKeyID uint8
}

func decodeServiceInfo(r *Reader) (ServiceInfo, error) {
	body, err := r.StructSize()
	if err != nil {
		return ServiceInfo{}, err
	}
	var s ServiceInfo
	if s.OriginalNetworkID, err = body.U16(); err != nil {
		return s, err
	}
	if s.TransportStreamID, err = body.U16(); err != nil {
		return s, err
	}
	if s.ServiceID, err = body.U16(); err != nil {
		return s, err
	}
	st, err := body.U8()
	if err != nil {
		return s, err
	}
	s.ServiceType = st
	pr, err := body.U8()
	if err != nil {
		return s, err
	}
	s.PartialReception = pr != 0
	if s.ServiceName, err = body.String(); err != nil {
		return s, err
	}
	if s.NetworkName, err = body.String(); err != nil {
		return s, err
	}
	rc, err := body.U8()
	if err != nil {
		return s, err
	}
	s.RemoteControlKeyID = rc
	return s, nil
}

// ServiceEventInfo is one EPG event, as returned by EnumPgInfoEx.
type ServiceEventInfo struct {
	OriginalNetworkID uint16
	TransportStreamID uint16
	ServiceID         uint16
	EventID           uint16
	StartTime         time.Time
	DurationSeconds   uint32
	Title             string
	ShortDescription  string
	ExtendedText       string
	HasUndeterminedDuration bool
}

func decodeServiceEventInfo(r *Reader) (ServiceEventInfo, error) {
	body, err := r.StructSize()
	if err != nil {
		return ServiceEventInfo{}, err
	}
	var e ServiceEventInfo
	if e.OriginalNetworkID, err = body.U16(); err != nil {
		return e, err
	}
	if e.TransportStreamID, err = body.U16(); err != nil {
		return e, err
	}
	if e.ServiceID, err = body.U16(); err != nil {
		return e, err
	}
	if e.EventID, err = body.U16(); err != nil {
		return e, err
	}
	st, err := body.SystemTime()
	if err != nil {
		return e, err
	}
	e.StartTime = st.Time()
	dur, err := body.U32()
	if err != nil {
		return e, err
	}
	// 0xFFFFFFFF marks an EIT event with no duration field ("未定"/TBD).
	if dur == 0xFFFFFFFF {
		e.HasUndeterminedDuration = true
	} else {
		e.DurationSeconds = dur
	}
	if e.Title, err = body.String(); err != nil {
		return e, err
	}
	if e.ShortDescription, err = body.String(); err != nil {
		return e, err
	}
	if e.ExtendedText, err = body.String(); err != nil {
		return e, err
	}
	return e, nil
}

// SetChInfo is the request payload for NwTVIDSetCh.
type SetChInfo struct {
	NetworkID         uint16
	TransportStreamID uint16
	ServiceID         uint16
	NwTVID            uint32 // "SpaceOrID": the caller-chosen nwtv_id
	UseSID            bool
	UseBonCh          bool
}

// chOrModeTCP is the fixed ChOrMode value selecting TCP relay, per spec.md §4.A.
const chOrModeTCP = 2

func (c SetChInfo) encode() []byte {
	return StructBody(func(w *Writer) {
		w.U16(c.NetworkID)
		w.U16(c.TransportStreamID)
		w.U16(c.ServiceID)
		w.U32(c.NwTVID)
		w.U32(chOrModeTCP)
		boolByte := func(b bool) uint8 {
			if b {
				return 1
			}
			return 0
		}
		w.U8(boolByte(c.UseSID))
		w.U8(boolByte(c.UseBonCh))
	})
}

// ReserveData is a recording reservation, as used by EnumReserve2/AddReserve2.
type ReserveData struct {
	Title             string
	StartTime         time.Time
	DurationSeconds   uint32
	NetworkID         uint16
	TransportStreamID uint16
	ServiceID         uint16
	EventID           uint16
	Comment           string
}

// RecSettingData holds the recording-mode settings attached to a reservation.
type RecSettingData struct {
	RecMode        uint8
	Priority       uint8
	TunerID        uint32
	StartMarginSec int32
	EndMarginSec   int32
}

// AutoAddData is a keyword-based recording reservation rule.
type AutoAddData struct {
	DataID         uint32
	Keyword        string
	RegExpFlag     bool
	ServiceID      uint16
	NetworkID      uint16
	RecSetting     RecSettingData
}

func encodeRecSettingData(rs RecSettingData) []byte {
	return StructBody(func(w *Writer) {
		w.U8(rs.RecMode)
		w.U8(rs.Priority)
		w.U32(rs.TunerID)
		w.I32(rs.StartMarginSec)
		w.I32(rs.EndMarginSec)
	})
}

func decodeRecSettingData(r *Reader) (RecSettingData, error) {
	body, err := r.StructSize()
	if err != nil {
		return RecSettingData{}, err
	}
	var rs RecSettingData
	if rs.RecMode, err = body.U8(); err != nil {
		return rs, err
	}
	if rs.Priority, err = body.U8(); err != nil {
		return rs, err
	}
	if rs.TunerID, err = body.U32(); err != nil {
		return rs, err
	}
	if rs.StartMarginSec, err = body.I32(); err != nil {
		return rs, err
	}
	if rs.EndMarginSec, err = body.I32(); err != nil {
		return rs, err
	}
	return rs, nil
}

func encodeAutoAddData(a AutoAddData) []byte {
	return StructBody(func(w *Writer) {
		w.U32(a.DataID)
		w.String(a.Keyword)
		regExpFlag := uint8(0)
		if a.RegExpFlag {
			regExpFlag = 1
		}
		w.U8(regExpFlag)
		w.U16(a.ServiceID)
		w.U16(a.NetworkID)
		w.buf.Write(encodeRecSettingData(a.RecSetting))
	})
}

func decodeAutoAddData(r *Reader) (AutoAddData, error) {
	body, err := r.StructSize()
	if err != nil {
		return AutoAddData{}, err
	}
	var a AutoAddData
	if a.DataID, err = body.U32(); err != nil {
		return a, err
	}
	if a.Keyword, err = body.String(); err != nil {
		return a, err
	}
	flag, err := body.U8()
	if err != nil {
		return a, err
	}
	a.RegExpFlag = flag != 0
	if a.ServiceID, err = body.U16(); err != nil {
		return a, err
	}
	if a.NetworkID, err = body.U16(); err != nil {
		return a, err
	}
	if a.RecSetting, err = decodeRecSettingData(body); err != nil {
		return a, err
	}
	return a, nil
}

func decodeReserveData(r *Reader) (ReserveData, error) {
	body, err := r.StructSize()
	if err != nil {
		return ReserveData{}, err
	}
	var rd ReserveData
	if rd.Title, err = body.String(); err != nil {
		return rd, err
	}
	st, err := body.SystemTime()
	if err != nil {
		return rd, err
	}
	rd.StartTime = st.Time()
	if rd.DurationSeconds, err = body.U32(); err != nil {
		return rd, err
	}
	if rd.NetworkID, err = body.U16(); err != nil {
		return rd, err
	}
	if rd.TransportStreamID, err = body.U16(); err != nil {
		return rd, err
	}
	if rd.ServiceID, err = body.U16(); err != nil {
		return rd, err
	}
	if rd.EventID, err = body.U16(); err != nil {
		return rd, err
	}
	if rd.Comment, err = body.String(); err != nil {
		return rd, err
	}
	return rd, nil
}
