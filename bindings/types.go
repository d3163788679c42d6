package bindings

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// InitReserveInput is one record of LendingPoolConfigurator.batchInitReserve.
type InitReserveInput struct {
	WvTokenImpl                 common.Address
	DebtTokenImpl               common.Address
	VaultTokenAddress           common.Address
	UnderlyingAsset             common.Address
	UnderlyingAssetName         string
	UnderlyingAssetDecimals     uint8
	InterestRateStrategyAddress common.Address
	Treasury                    common.Address
	WvTokenName                 string
	WvTokenSymbol               string
	DebtTokenName               string
	DebtTokenSymbol             string
}

// TokenData is an entry of the data provider token listings.
type TokenData struct {
	Symbol       string
	TokenAddress common.Address
}

// FindToken looks up the token with the given symbol.
func FindToken(tokens []TokenData, symbol string) (common.Address, bool) {
	for _, tok := range tokens {
		if tok.Symbol == symbol {
			return tok.TokenAddress, true
		}
	}
	return common.Address{}, false
}

// UserReserveData mirrors WevestProtocolDataProvider.getUserReserveData.
type UserReserveData struct {
	CurrentWvTokenBalance    *big.Int
	CurrentDebt              *big.Int
	PrincipalDebt            *big.Int
	LiquidityRate            *big.Int
	UsageAsCollateralEnabled bool
}

// ReserveData mirrors LendingPool.getReserveData.
type ReserveData struct {
	WvTokenAddress              common.Address
	DebtTokenAddress            common.Address
	VaultTokenAddress           common.Address
	InterestRateStrategyAddress common.Address
	Decimals                    uint8
	BorrowingEnabled            bool
	Id                          uint8
}

// Position mirrors LendingPool.getPosition.
type Position struct {
	CollateralAmount *big.Int
	MarginAmount     *big.Int
	DebtAmount       *big.Int
}

// ReserveTokens mirrors WevestProtocolDataProvider.getReserveTokensAddresses.
type ReserveTokens struct {
	WvTokenAddress   common.Address
	DebtTokenAddress common.Address
}

// LeverageRatioMode selects the borrow multiplier of LendingPool.borrow.
type LeverageRatioMode uint8

const (
	LeverageHalf  LeverageRatioMode = 0
	LeverageOne   LeverageRatioMode = 1
	LeverageTwo   LeverageRatioMode = 2
	LeverageThree LeverageRatioMode = 3
)

func (m LeverageRatioMode) String() string {
	switch m {
	case LeverageHalf:
		return "0.5x"
	case LeverageOne:
		return "1x"
	case LeverageTwo:
		return "2x"
	case LeverageThree:
		return "3x"
	default:
		return fmt.Sprintf("LeverageRatioMode(%d)", uint8(m))
	}
}

// Apply scales amount by the leverage ratio. Unknown modes return false.
func (m LeverageRatioMode) Apply(amount *big.Int) (*big.Int, bool) {
	switch m {
	case LeverageHalf:
		return new(big.Int).Rsh(amount, 1), true
	case LeverageOne, LeverageTwo, LeverageThree:
		return new(big.Int).Mul(amount, big.NewInt(int64(m))), true
	default:
		return nil, false
	}
}
