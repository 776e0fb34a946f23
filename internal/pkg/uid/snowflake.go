package uid

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ErrNodeIdentityUnavailable indicates no stable node identity is available.
var ErrNodeIdentityUnavailable = errors.New("uid: cannot determine node identity (machine-id/hostname unavailable)")

// Snowflake generates int64 ids using a node derived from the host identity.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a generator whose node number is derived from
// /etc/machine-id or the hostname, so replicas get distinct nodes without
// extra configuration.
func NewSnowflake() (*Snowflake, error) {
	src, err := nodeIdentity()
	if err != nil {
		return nil, err
	}

	return newSnowflake(nodeNumber(src))
}

func newSnowflake(n int64) (*Snowflake, error) {
	node, err := snowflake.NewNode(n)
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: node}, nil
}

// Generate returns the next id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}

func nodeNumber(src string) int64 {
	sum := sha256.Sum256([]byte(src))
	mask := int64(-1 ^ (-1 << snowflake.NodeBits))
	return int64(binary.BigEndian.Uint16(sum[:2])) & mask
}

func nodeIdentity() (string, error) {
	if b, err := os.ReadFile("/etc/machine-id"); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return s, nil
		}
	}

	if h, err := os.Hostname(); err == nil {
		if h = strings.TrimSpace(h); h != "" {
			return h, nil
		}
	}

	return "", ErrNodeIdentityUnavailable
}
