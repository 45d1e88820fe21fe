package ogg

// Ogg pages are protected by a CRC-32 with polynomial 0x04C11DB7,
// initial value 0, no bit reflection and no final xor — not the IEEE
// variant hash/crc32 provides, so the table lives here.

var crcTable = buildCRCTable()

func buildCRCTable() [256]uint32 {
	var table [256]uint32
	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04C11DB7
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	return table
}

// crcUpdate folds data into the running checksum.
func crcUpdate(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}

// PageCRC computes the checksum of a serialised page whose checksum
// field (bytes 22..25) is taken as zero.
func PageCRC(page []byte) uint32 {
	crc := crcUpdate(0, page[:22])
	crc = crcUpdate(crc, []byte{0, 0, 0, 0})
	return crcUpdate(crc, page[26:])
}
