package chains

import (
	"bytes"

	"decred.org/dcrwallet/v2/errors"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/crypto-power/tipwizard/libtipper/utils"
	"golang.org/x/crypto/blake2b"
)

const (
	// GenericPrefix is the substrate-wide prefix accepted on every chain.
	GenericPrefix uint16 = 42

	publicKeyLen = 32
	checksumLen  = 2
)

var ss58Pre = []byte("SS58PRE")

func ss58Checksum(data []byte) []byte {
	hash := blake2b.Sum512(append(append([]byte{}, ss58Pre...), data...))
	return hash[:checksumLen]
}

func encodePrefix(prefix uint16) []byte {
	if prefix < 64 {
		return []byte{byte(prefix)}
	}
	first := byte((prefix&0x00fc)>>2) | 0x40
	second := byte(prefix>>8) | byte((prefix&0x0003)<<6)
	return []byte{first, second}
}

// EncodeAddress returns the SS58 form of a 32 byte public key.
func EncodeAddress(pubKey []byte, prefix uint16) (string, error) {
	if len(pubKey) != publicKeyLen {
		return "", errors.E(errors.Invalid, utils.ErrInvalidAddress)
	}
	if prefix > 16383 {
		return "", errors.E(errors.Invalid, utils.ErrInvalidAddress)
	}

	data := append(encodePrefix(prefix), pubKey...)
	data = append(data, ss58Checksum(data)...)
	return base58.Encode(data), nil
}

// DecodeAddress parses an SS58 address and returns its network prefix and
// public key.
func DecodeAddress(address string) (uint16, []byte, error) {
	data := base58.Decode(address)
	if len(data) < 2 {
		return 0, nil, errors.E(errors.Invalid, utils.ErrInvalidAddress)
	}

	var prefix uint16
	var prefixLen int
	switch {
	case data[0] < 64:
		prefix, prefixLen = uint16(data[0]), 1
	case data[0] < 128:
		lower := (data[0] << 2) | (data[1] >> 6)
		upper := data[1] & 0x3f
		prefix, prefixLen = uint16(lower)|uint16(upper)<<8, 2
	default:
		return 0, nil, errors.E(errors.Invalid, utils.ErrInvalidAddress)
	}

	if len(data) != prefixLen+publicKeyLen+checksumLen {
		return 0, nil, errors.E(errors.Invalid, utils.ErrInvalidAddress)
	}

	body := data[:len(data)-checksumLen]
	if !bytes.Equal(ss58Checksum(body), data[len(data)-checksumLen:]) {
		return 0, nil, errors.E(errors.Invalid, utils.ErrInvalidAddress)
	}

	pubKey := make([]byte, publicKeyLen)
	copy(pubKey, body[prefixLen:])
	return prefix, pubKey, nil
}

// ValidateAddress checks that address is a well formed account address for
// the chain, accepting the generic substrate prefix as well.
func (p *Params) ValidateAddress(address string) ([]byte, error) {
	prefix, pubKey, err := DecodeAddress(address)
	if err != nil {
		return nil, err
	}
	if prefix != p.SS58Prefix && prefix != GenericPrefix {
		return nil, errors.E(errors.Invalid, utils.ErrInvalidAddress)
	}
	return pubKey, nil
}

// SliceMiddle shortens an address to its first and last six characters.
func SliceMiddle(address string) string {
	if len(address) <= 14 {
		return address
	}
	return address[:6] + "..." + address[len(address)-6:]
}
