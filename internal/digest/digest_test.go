package digest

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntegrity(t *testing.T) {
	data := []byte("console.log(1)\n")
	sum := sha256.Sum256(data)
	assert.Equal(t, "sha256-"+base64.StdEncoding.EncodeToString(sum[:]), Integrity(data))
	assert.Equal(t, "sha256-47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU=", Integrity(nil))
}

func TestNameTracksContent(t *testing.T) {
	a := name([]byte("a"), ".js")
	assert.Equal(t, "ca978112ca1bbdcafac231b39a23dc4da786eff8147c4e72b9807785afee48bb.js", a)
	assert.Equal(t, a, name([]byte("a"), ".js"))
	assert.NotEqual(t, a, name([]byte("b"), ".js"))
	assert.Equal(t, "/dst/en/"+a, Rename("/dst/en/main.js", []byte("a")))
	assert.True(t, Hash{}.IsZero())
	assert.False(t, Sum(nil).IsZero())
}
