package contractCaller

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// placeholderLen is the width of a library placeholder in compiled hex
// bytecode: the library name wrapped in underscores, padded to the length
// of an address.
const placeholderLen = 2 * common.AddressLength

// LinkBytecode substitutes library addresses into compiled hex bytecode.
// Compilers emit a 40-character underscore-padded placeholder such as
// "__SafeMath______________________________" where a linked library
// address belongs. Every placeholder must be resolved; hex decoding of
// the linked result is the final check.
func LinkBytecode(bytecodeHex string, libraries map[string]common.Address) ([]byte, error) {
	code := strings.TrimPrefix(bytecodeHex, "0x")

	for name, address := range libraries {
		if len(name)+4 > placeholderLen {
			return nil, errors.Errorf("library name %q is too long to link", name)
		}
		placeholder := "__" + name + strings.Repeat("_", placeholderLen-2-len(name))
		code = strings.ReplaceAll(code, placeholder, hex.EncodeToString(address.Bytes()))
	}

	if i := strings.Index(code, "__"); i >= 0 {
		end := i + placeholderLen
		if end > len(code) {
			end = len(code)
		}
		return nil, errors.Wrapf(ErrUnlinkedBytecode, "placeholder %s", strings.Trim(code[i:end], "_"))
	}

	decoded, err := hex.DecodeString(code)
	if err != nil {
		return nil, errors.Wrap(err, "bytecode is not valid hex")
	}
	return decoded, nil
}
