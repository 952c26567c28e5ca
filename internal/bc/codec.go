package bc

import "encoding/binary"

func putInt32(buf []byte, v int32) {
	binary.BigEndian.PutUint32(buf, uint32(v))
}

func getInt32(buf []byte) int32 {
	return int32(binary.BigEndian.Uint32(buf))
}

func putUint32(buf []byte, v uint32) {
	binary.BigEndian.PutUint32(buf, v)
}

func getUint32(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf)
}
