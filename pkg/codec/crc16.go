package codec

// CRC-16/XMODEM: polynomial 0x1021, initial value 0xFFFF, no input/output
// reflection, no final XOR. The original Python bridge computes this via
// `crc16.crc16xmodem(data, 0xffff)`; a third-party CRC16 package in the
// wider Go ecosystem (joaojeronimo/go-crc16) was considered, but its
// default table doesn't pin the exact init-value/no-reflect variant the
// Nuki wire format requires bit-for-bit, so the table is computed directly
// here against the published algorithm instead.
const crc16Poly = 0x1021

var crc16Table [256]uint16

func init() {
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for b := 0; b < 8; b++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crc16Poly
			} else {
				crc <<= 1
			}
		}
		crc16Table[i] = crc
	}
}

// CRC16XModem computes the CRC-16/XMODEM checksum of data starting from the
// given initial value (the Nuki protocol always starts from 0xFFFF).
func CRC16XModem(data []byte, init uint16) uint16 {
	crc := init
	for _, b := range data {
		crc = (crc << 8) ^ crc16Table[byte(crc>>8)^b]
	}
	return crc
}
