// Package artifacts loads hardhat compilation artifacts and links library references.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const HardhatFormat = "hh-sol-artifact-1"

var (
	ErrNotFound       = errors.New("artifact not found")
	ErrMissingLibrary = errors.New("missing library address")
	ErrBadPlaceholder = errors.New("link reference does not point at a placeholder")
)

// LinkOffset is the byte range of one library placeholder in the bytecode.
type LinkOffset struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// LinkReferences maps source name to library name to placeholder offsets.
type LinkReferences map[string]map[string][]LinkOffset

// Libraries returns the names of all referenced libraries, sorted.
func (l LinkReferences) Libraries() []string {
	seen := make(map[string]struct{})
	for _, libs := range l {
		for name := range libs {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Artifact is a hardhat contract artifact.
type Artifact struct {
	Format                 string          `json:"_format"`
	ContractName           string          `json:"contractName"`
	SourceName             string          `json:"sourceName"`
	ABI                    json.RawMessage `json:"abi"`
	Bytecode               string          `json:"bytecode"`
	DeployedBytecode       string          `json:"deployedBytecode"`
	LinkReferences         LinkReferences  `json:"linkReferences"`
	DeployedLinkReferences LinkReferences  `json:"deployedLinkReferences"`
}

// Parse decodes an artifact and checks it carries creation code.
func Parse(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	if a.ContractName == "" {
		return nil, errors.New("artifact has no contract name")
	}
	if a.Format != "" && a.Format != HardhatFormat {
		return nil, fmt.Errorf("unsupported artifact format %q", a.Format)
	}
	if strings.TrimPrefix(a.Bytecode, "0x") == "" {
		return nil, fmt.Errorf("artifact %s has no bytecode (abstract contract or interface?)", a.ContractName)
	}
	return &a, nil
}

func (a *Artifact) ParsedABI() (*abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(string(a.ABI)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI of %s: %w", a.ContractName, err)
	}
	return &parsed, nil
}

// Placeholder is the solc library placeholder for a fully qualified library name.
func Placeholder(sourceName, libName string) string {
	hash := crypto.Keccak256([]byte(sourceName + ":" + libName))
	return "__$" + hexutil.Encode(hash)[2:36] + "$__"
}

// Link replaces every library placeholder with the given addresses
// and returns the decoded creation code.
func (a *Artifact) Link(libs map[string]common.Address) ([]byte, error) {
	code := []byte(strings.TrimPrefix(a.Bytecode, "0x"))
	for source, refs := range a.LinkReferences {
		for lib, offsets := range refs {
			addr, ok := libs[lib]
			if !ok || addr == (common.Address{}) {
				return nil, fmt.Errorf("%w: %s needs %s", ErrMissingLibrary, a.ContractName, lib)
			}
			want := Placeholder(source, lib)
			hexAddr := []byte(hexutil.Encode(addr.Bytes())[2:])
			for _, off := range offsets {
				start, end := off.Start*2, (off.Start+off.Length)*2
				if off.Length != common.AddressLength || end > len(code) {
					return nil, fmt.Errorf("invalid link offset %d+%d for %s in %s", off.Start, off.Length, lib, a.ContractName)
				}
				if string(code[start:end]) != want {
					return nil, fmt.Errorf("%w: %s at %d in %s", ErrBadPlaceholder, lib, off.Start, a.ContractName)
				}
				copy(code[start:end], hexAddr)
			}
		}
	}
	out, err := hexutil.Decode("0x" + string(code))
	if err != nil {
		return nil, fmt.Errorf("failed to decode linked bytecode of %s: %w", a.ContractName, err)
	}
	return out, nil
}

// DeployData links the artifact and appends the ABI encoded constructor arguments.
func (a *Artifact) DeployData(libs map[string]common.Address, args ...any) ([]byte, error) {
	code, err := a.Link(libs)
	if err != nil {
		return nil, err
	}
	parsed, err := a.ParsedABI()
	if err != nil {
		return nil, err
	}
	input, err := parsed.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack constructor of %s: %w", a.ContractName, err)
	}
	return append(code, input...), nil
}
