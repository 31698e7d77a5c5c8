package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// ProofHash generates the SHA-256 integrity hash for a resolution proof.
//
// Hash input:
//   image_reference (UTF-8 bytes) || latitude (float64 LE) || longitude (float64 LE) || captured_at (Unix nano int64 LE)
//
// Image bytes never pass through the core; the object store reference stands
// in for them. Timestamp MUST be server-generated at submission time.
//
// Trust model: the hash is an INTEGRITY SIGNAL (detects tampering of the
// proof record after capture). It is NOT authenticity proof of who or where.
func ProofHash(
	imageReference string,
	latitude float64,
	longitude float64,
	capturedAt time.Time,
) string {
	buf := bytes.NewBufferString(imageReference)

	_ = binary.Write(buf, binary.LittleEndian, latitude)
	_ = binary.Write(buf, binary.LittleEndian, longitude)
	_ = binary.Write(buf, binary.LittleEndian, capturedAt.UnixNano())

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:])
}
