package convert

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
)

// orientationNormal is EXIF orientation 1, also assumed when the tag is absent.
const orientationNormal = 1

// jpegOrientation returns the EXIF orientation tag of a JPEG file, or
// orientationNormal when the file is not a JPEG or carries no usable tag.
func jpegOrientation(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return orientationNormal
	}
	defer f.Close()

	o, err := readJPEGOrientation(bufio.NewReader(f))
	if err != nil || o < 1 || o > 8 {
		return orientationNormal
	}
	return o
}

func readJPEGOrientation(r io.Reader) (int, error) {
	var soi uint16
	if err := binary.Read(r, binary.BigEndian, &soi); err != nil {
		return 0, err
	}
	if soi != 0xffd8 {
		return orientationNormal, nil
	}

	// Walk markers until the EXIF APP1 segment or the start of scan.
	for {
		var marker, size uint16
		if err := binary.Read(r, binary.BigEndian, &marker); err != nil {
			return 0, err
		}
		if marker>>8 != 0xff || marker == 0xffda {
			return orientationNormal, nil
		}
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			return 0, err
		}
		if size < 2 {
			return orientationNormal, nil
		}
		seg := make([]byte, size-2)
		if _, err := io.ReadFull(r, seg); err != nil {
			return 0, err
		}
		if marker == 0xffe1 && len(seg) >= 6 && string(seg[:6]) == "Exif\x00\x00" {
			return tiffOrientation(seg[6:]), nil
		}
	}
}

// tiffOrientation looks up tag 0x0112 in IFD0 of a TIFF-structured block.
func tiffOrientation(b []byte) int {
	if len(b) < 8 {
		return orientationNormal
	}
	var order binary.ByteOrder
	switch string(b[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return orientationNormal
	}

	ifd := int(order.Uint32(b[4:8]))
	if ifd < 8 || ifd+2 > len(b) {
		return orientationNormal
	}
	n := int(order.Uint16(b[ifd:]))
	for i := 0; i < n; i++ {
		entry := ifd + 2 + i*12
		if entry+12 > len(b) {
			break
		}
		if order.Uint16(b[entry:]) == 0x0112 {
			return int(order.Uint16(b[entry+8:]))
		}
	}
	return orientationNormal
}
