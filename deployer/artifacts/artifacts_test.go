package artifacts

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/common"
)

const (
	genericSource    = "contracts/protocol/libraries/logic/GenericLogic.sol"
	validationSource = "contracts/protocol/libraries/logic/ValidationLogic.sol"
)

// linkedArtifact builds an artifact with code 0x6080, followed by one placeholder per library.
func linkedArtifact(name string, libs map[string]string) *Artifact {
	code := "0x6080"
	refs := LinkReferences{}
	offset := 2
	for lib, source := range libs {
		code += Placeholder(source, lib)
		refs[source] = map[string][]LinkOffset{lib: {{Start: offset, Length: 20}}}
		offset += 20
	}
	return &Artifact{
		Format:         HardhatFormat,
		ContractName:   name,
		SourceName:     "contracts/" + name + ".sol",
		ABI:            json.RawMessage(`[]`),
		Bytecode:       code,
		LinkReferences: refs,
	}
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder(genericSource, "GenericLogic")
	require.Len(t, p, 40)
	require.True(t, strings.HasPrefix(p, "__$"))
	require.True(t, strings.HasSuffix(p, "$__"))
}

func TestLink(t *testing.T) {
	a := linkedArtifact("ValidationLogic", map[string]string{"GenericLogic": genericSource})
	lib := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	_, err := a.Link(nil)
	require.ErrorIs(t, err, ErrMissingLibrary)

	code, err := a.Link(map[string]common.Address{"GenericLogic": lib})
	require.NoError(t, err)
	require.Equal(t, []byte{0x60, 0x80}, code[:2])
	require.Equal(t, lib.Bytes(), code[2:22])
}

func TestLinkRejectsBadOffset(t *testing.T) {
	a := linkedArtifact("ValidationLogic", map[string]string{"GenericLogic": genericSource})
	a.LinkReferences[genericSource]["GenericLogic"][0].Start = 1
	_, err := a.Link(map[string]common.Address{"GenericLogic": {0x1}})
	require.ErrorIs(t, err, ErrBadPlaceholder)
}

func TestGraphOrder(t *testing.T) {
	src := MemSource{
		"ReserveLogic":    linkedArtifact("ReserveLogic", nil),
		"GenericLogic":    linkedArtifact("GenericLogic", nil),
		"ValidationLogic": linkedArtifact("ValidationLogic", map[string]string{"GenericLogic": genericSource}),
		"LendingPool": linkedArtifact("LendingPool", map[string]string{
			"ReserveLogic":    "contracts/protocol/libraries/logic/ReserveLogic.sol",
			"ValidationLogic": validationSource,
		}),
	}
	g, err := BuildGraph(src, "LendingPool")
	require.NoError(t, err)
	order, err := g.Order()
	require.NoError(t, err)
	require.Equal(t, []string{"GenericLogic", "ReserveLogic", "ValidationLogic", "LendingPool"}, order)

	pos := make(map[string]int)
	for i, name := range order {
		pos[name] = i
	}
	for name, deps := range g {
		for _, dep := range deps {
			require.Less(t, pos[dep], pos[name], "%s must come before %s", dep, name)
		}
	}
}

func TestGraphCycle(t *testing.T) {
	g := Graph{
		"A": {"B"},
		"B": {"C"},
		"C": {"A"},
		"D": nil,
	}
	_, err := g.Order()
	require.ErrorIs(t, err, ErrCycle)
	require.Contains(t, err.Error(), "A, B, C")
}

func TestBuildGraphMissing(t *testing.T) {
	_, err := BuildGraph(MemSource{}, "LendingPool")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDirSource(t *testing.T) {
	fsys := afero.NewMemMapFs()
	a := linkedArtifact("GenericLogic", nil)
	data, err := json.Marshal(a)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fsys, "artifacts/contracts/protocol/libraries/logic/GenericLogic.sol/GenericLogic.json", data, 0o644))
	require.NoError(t, afero.WriteFile(fsys, "artifacts/contracts/protocol/libraries/logic/GenericLogic.sol/GenericLogic.dbg.json", []byte(`{}`), 0o644))

	src, err := NewDirSource(fsys, "artifacts")
	require.NoError(t, err)

	got, err := src.Artifact("GenericLogic")
	require.NoError(t, err)
	require.Equal(t, "GenericLogic", got.ContractName)

	again, err := src.Artifact("GenericLogic")
	require.NoError(t, err)
	require.Same(t, got, again, "served from cache")

	_, err = src.Artifact("LendingPool")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = NewDirSource(fsys, "missing")
	require.Error(t, err)
}

func TestChainSource(t *testing.T) {
	first := MemSource{"A": linkedArtifact("A", nil)}
	second := MemSource{"B": linkedArtifact("B", nil)}
	src := ChainSource{first, second}
	b, err := src.Artifact("B")
	require.NoError(t, err)
	require.Equal(t, "B", b.ContractName)
	_, err = src.Artifact("C")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestParse(t *testing.T) {
	_, err := Parse([]byte(`{"contractName":"IERC20","bytecode":"0x"}`))
	require.Error(t, err)
	_, err = Parse([]byte(`{"_format":"other","contractName":"X","bytecode":"0x60"}`))
	require.Error(t, err)
	a, err := Parse([]byte(`{"_format":"hh-sol-artifact-1","contractName":"X","bytecode":"0x6080","abi":[]}`))
	require.NoError(t, err)
	require.Equal(t, "X", a.ContractName)
}
