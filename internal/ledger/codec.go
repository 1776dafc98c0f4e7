package ledger

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

func encode(disc bin.TypeID, v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, disc bin.TypeID, v interface{}) error {
	if len(data) < len(disc) || !disc.Equal(data[:len(disc)]) {
		return fmt.Errorf("%w: discriminator mismatch", ErrCorruptAccount)
	}
	if err := bin.NewBorshDecoder(data[len(disc):]).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptAccount, err)
	}
	return nil
}
