package neo4j

import (
	"crypto/rand"
	"encoding/hex"
)

func newEdgeID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
