package stego

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/klauspost/reedsolomon"
)

// Payload framing: two magic bytes so Reveal can tell a carrier file from a
// clean one, then a big-endian u16 length so leading zero bytes of the
// secret survive the round trip through an integer.
const (
	secretMagic0 = 0xBE
	secretMagic1 = 0xEF

	secretFrameOverhead = 4
)

// packSecret frames a secret and lifts it to the integer the permutation
// codec consumes. The magic byte is non-zero, so the integer's big-endian
// byte form is exactly the frame.
func packSecret(secret []byte) (*big.Int, error) {
	if len(secret) > 0xFFFF {
		return nil, fmt.Errorf("%w: secret of %d bytes exceeds frame limit", ErrCapacity, len(secret))
	}
	frame := make([]byte, 0, secretFrameOverhead+len(secret))
	frame = append(frame, secretMagic0, secretMagic1)
	frame = binary.BigEndian.AppendUint16(frame, uint16(len(secret)))
	frame = append(frame, secret...)
	return new(big.Int).SetBytes(frame), nil
}

// unpackSecret reverses packSecret. A missing magic or a length that does
// not match the recovered frame means the file carries no message.
func unpackSecret(index *big.Int) ([]byte, error) {
	frame := index.Bytes()
	if len(frame) < secretFrameOverhead || frame[0] != secretMagic0 || frame[1] != secretMagic1 {
		return nil, ErrNoSecret
	}
	length := int(binary.BigEndian.Uint16(frame[2:4]))
	if len(frame) != secretFrameOverhead+length {
		return nil, ErrNoSecret
	}
	return frame[secretFrameOverhead:], nil
}

// maxSecretBytes is the largest secret length guaranteed to fit a given
// permutation capacity: any frame of that many payload bytes encodes to an
// integer below 2^(capacity.BitLen()-1) <= capacity.
func maxSecretBytes(capacity *big.Int) int {
	n := (capacity.BitLen()-1)/8 - secretFrameOverhead
	if n < 0 {
		return 0
	}
	return n
}

// Reed-Solomon shield, optional. Same shard geometry as a (4, 2) code with
// a length prefix; corrupt shards are reconstructed on the way out.
const (
	rsDataShards   = 4
	rsParityShards = 2
)

func addShield(data []byte) ([]byte, error) {
	enc, err := reedsolomon.New(rsDataShards, rsParityShards)
	if err != nil {
		return nil, err
	}

	payload := binary.BigEndian.AppendUint32(make([]byte, 0, 4+len(data)), uint32(len(data)))
	payload = append(payload, data...)

	shards, err := enc.Split(payload)
	if err != nil {
		return nil, err
	}
	if err := enc.Encode(shards); err != nil {
		return nil, err
	}

	var out []byte
	for _, shard := range shards {
		out = append(out, shard...)
	}
	return out, nil
}

func removeShield(data []byte) ([]byte, error) {
	enc, err := reedsolomon.New(rsDataShards, rsParityShards)
	if err != nil {
		return nil, err
	}

	shards, err := enc.Split(data)
	if err != nil {
		return nil, err
	}
	if ok, _ := enc.Verify(shards); !ok {
		if err := enc.Reconstruct(shards); err != nil {
			return nil, err
		}
	}

	var joined []byte
	for i := 0; i < rsDataShards; i++ {
		joined = append(joined, shards[i]...)
	}
	if len(joined) < 4 {
		return nil, fmt.Errorf("%w: shielded payload too short", ErrNoSecret)
	}
	length := binary.BigEndian.Uint32(joined[:4])
	if uint32(len(joined)-4) < length {
		return nil, fmt.Errorf("%w: shielded payload length mismatch", ErrNoSecret)
	}
	return joined[4 : 4+length], nil
}
