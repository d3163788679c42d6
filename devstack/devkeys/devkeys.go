// Package devkeys derives the development accounts of a mnemonic.
package devkeys

import (
	"crypto/ecdsa"
	"fmt"

	hdwallet "github.com/ethereum-optimism/go-ethereum-hdwallet"
	"github.com/ethereum/go-ethereum/common"

	"github.com/wevest/wevest-devstack/chain"
)

// TestMnemonic is the mnemonic of the prefunded accounts of hardhat and anvil nodes.
const TestMnemonic = "test test test test test test test test test test test junk"

// Index selects an account of the mnemonic.
type Index uint32

const (
	Deployer       Index = 0
	EmergencyAdmin Index = 1
	// FirstUser is the first account handed to tests as an actor.
	FirstUser Index = 2
)

// HDPath is the standard ethereum derivation path of the account.
func (i Index) HDPath() string {
	return fmt.Sprintf("m/44'/60'/0'/0/%d", uint32(i))
}

func (i Index) String() string {
	switch i {
	case Deployer:
		return "deployer"
	case EmergencyAdmin:
		return "emergency-admin"
	default:
		return fmt.Sprintf("user-%d", uint32(i-FirstUser))
	}
}

// User is the index of the n-th test actor.
func User(n int) Index {
	return FirstUser + Index(n)
}

type MnemonicDevKeys struct {
	w *hdwallet.Wallet
}

func NewMnemonicDevKeys(mnemonic string) (*MnemonicDevKeys, error) {
	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	return &MnemonicDevKeys{w: w}, nil
}

func (d *MnemonicDevKeys) Secret(i Index) (*ecdsa.PrivateKey, error) {
	path, err := hdwallet.ParseDerivationPath(i.HDPath())
	if err != nil {
		return nil, fmt.Errorf("invalid path of %s: %w", i, err)
	}
	account, err := d.w.Derive(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to derive %s: %w", i, err)
	}
	priv, err := d.w.PrivateKey(account)
	if err != nil {
		return nil, fmt.Errorf("failed to get private key of %s: %w", i, err)
	}
	return priv, nil
}

func (d *MnemonicDevKeys) Address(i Index) (common.Address, error) {
	acct, err := d.Account(i)
	if err != nil {
		return common.Address{}, err
	}
	return acct.Address, nil
}

// Account is the signing account at index i.
func (d *MnemonicDevKeys) Account(i Index) (chain.Account, error) {
	priv, err := d.Secret(i)
	if err != nil {
		return chain.Account{}, err
	}
	return chain.NewAccount(priv), nil
}
