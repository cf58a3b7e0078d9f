package deal

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/blackwell-systems/rlztrack/internal/checksum"
)

// MachineIDLength is the length of the hex machine id: a SHA-1 digest plus
// one checksum byte.
const MachineIDLength = 2 * (sha1.Size + 1)

// MachineIDFile is where the host identity is read from.
var MachineIDFile = "/etc/machine-id"

// MachineIDFrom derives the universal machine id from a host identity and a
// volume serial. The id is SHA-1(sid || le32(volumeID)) followed by the low
// byte of the digest's CRC32, upper-case hex.
func MachineIDFrom(sid []byte, volumeID uint32) (string, error) {
	if len(sid) == 0 {
		return "", fmt.Errorf("machine identity cannot be empty")
	}
	buf := make([]byte, 0, len(sid)+4)
	buf = append(buf, sid...)
	buf = binary.LittleEndian.AppendUint32(buf, volumeID)

	digest := sha1.Sum(buf)
	id := make([]byte, 0, sha1.Size+1)
	id = append(id, digest[:]...)
	id = append(id, byte(checksum.Bytes(digest[:])&0xFF))
	return checksum.BytesToString(id), nil
}

// MachineID computes the id for this host from MachineIDFile and the
// filesystem id of the root volume.
func MachineID() (string, error) {
	raw, err := os.ReadFile(MachineIDFile)
	if err != nil {
		return "", fmt.Errorf("failed to read machine identity: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	sid, err := hex.DecodeString(text)
	if err != nil {
		sid = []byte(text)
	}

	var fs unix.Statfs_t
	var volume uint32
	if err := unix.Statfs("/", &fs); err == nil {
		volume = uint32(fs.Fsid.Val[0])
	}
	return MachineIDFrom(sid, volume)
}
