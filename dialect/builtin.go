package dialect

const heartbeatID = 0

// Heartbeat returns the built-in HEARTBEAT definition (common message 0).
// It is the one layout carried in code: liveness detection must work even
// when the supplied dialect file omits it. Layout is the encoded
// (size-ordered) order, crc_extra per the common dialect.
func Heartbeat() *Message {
	return &Message{
		ID:            heartbeatID,
		Name:          "HEARTBEAT",
		CRCExtra:      50,
		EncodedLength: 9,
		Fields: []Field{
			{Name: "custom_mode", Type: "uint32_t", BaseType: "uint32_t", Offset: 0, Size: 4, ArrayLength: 1},
			{Name: "type", Type: "uint8_t", BaseType: "uint8_t", Offset: 4, Size: 1, ArrayLength: 1, Enum: "MAV_TYPE"},
			{Name: "autopilot", Type: "uint8_t", BaseType: "uint8_t", Offset: 5, Size: 1, ArrayLength: 1, Enum: "MAV_AUTOPILOT"},
			{Name: "base_mode", Type: "uint8_t", BaseType: "uint8_t", Offset: 6, Size: 1, ArrayLength: 1, Enum: "MAV_MODE_FLAG"},
			{Name: "system_status", Type: "uint8_t", BaseType: "uint8_t", Offset: 7, Size: 1, ArrayLength: 1, Enum: "MAV_STATE"},
			{Name: "mavlink_version", Type: "uint8_t_mavlink_version", BaseType: "uint8_t", Offset: 8, Size: 1, ArrayLength: 1},
		},
	}
}
