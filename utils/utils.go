package utils

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

var ErrInvalidAddress = errors.New("invalid wallet address")

const addressHexLen = 40

// NormalizeAddress проверяет формат адреса кошелька и приводит его к нижнему
// регистру. Все сравнения адресов в сервисе идут по нормализованному виду.
func NormalizeAddress(address string) (string, error) {
	a := strings.TrimSpace(address)
	if len(a) != addressHexLen+2 || !(strings.HasPrefix(a, "0x") || strings.HasPrefix(a, "0X")) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	body := strings.ToLower(a[2:])
	if _, err := hex.DecodeString(body); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	// Адрес в смешанном регистре обязан иметь корректную контрольную сумму EIP-55.
	if a[2:] != body && a[2:] != strings.ToUpper(body) {
		if ChecksumAddress("0x"+body) != "0x"+a[2:] {
			return "", fmt.Errorf("%w: bad checksum %q", ErrInvalidAddress, address)
		}
	}
	return "0x" + body, nil
}

// ChecksumAddress returns the EIP-55 mixed-case form of a lower-case address.
func ChecksumAddress(address string) string {
	body := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X"))
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(body))
	digest := h.Sum(nil)

	out := make([]byte, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if c >= 'a' && c <= 'f' && nibble >= 8 {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return "0x" + string(out)
}

// SameAddress compares two wallet addresses ignoring case.
func SameAddress(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
