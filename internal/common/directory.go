package common

import (
	"fmt"
	"os"
	"path/filepath"

	"swap-exchange-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type CurrencyConfig struct {
	Id        string `yaml:"id"`
	Ticker    string `yaml:"ticker"`
	Name      string `yaml:"name"`
	Magnitude int32  `yaml:"magnitude"`
	App       string `yaml:"app"`
	Parent    string `yaml:"parent"`
}

// AccountConfig declares an account. Balance is in display units.
type AccountConfig struct {
	Id             string `yaml:"id"`
	Name           string `yaml:"name"`
	Currency       string `yaml:"currency"`
	Balance        string `yaml:"balance"`
	Address        string `yaml:"address"`
	DerivationPath string `yaml:"derivation_path"`
	Parent         string `yaml:"parent"`
}

type DirectoryConfig struct {
	Currencies    []CurrencyConfig      `yaml:"currencies"`
	Accounts      []AccountConfig       `yaml:"accounts"`
	Providers     []models.Provider     `yaml:"providers"`
	InstalledApps []models.InstalledApp `yaml:"installed_apps"`
}

// LoadDirectory reads the account directory seed file. Relative paths are
// resolved against the working directory.
func LoadDirectory(directoryFile string) (*models.Directory, error) {
	var directoryPath string
	if filepath.IsAbs(directoryFile) {
		directoryPath = directoryFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		directoryPath = filepath.Join(wd, directoryFile)
	}

	data, err := os.ReadFile(directoryPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", directoryFile, err)
	}

	var config DirectoryConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", directoryFile, err)
	}

	directory, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid directory %s: %w", directoryFile, err)
	}
	return directory, nil
}

// Build validates the configuration and links tokens and token accounts to their parents
func (c DirectoryConfig) Build() (*models.Directory, error) {
	directory := &models.Directory{
		Providers:     c.Providers,
		InstalledApps: c.InstalledApps,
	}

	currencies := make(map[string]*models.Currency, len(c.Currencies))
	for i, cc := range c.Currencies {
		if cc.Id == "" || cc.Ticker == "" {
			return nil, fmt.Errorf("currency at index %d missing id or ticker", i)
		}
		if _, exists := currencies[cc.Id]; exists {
			return nil, fmt.Errorf("duplicate currency %s", cc.Id)
		}
		if cc.Magnitude < 0 {
			return nil, fmt.Errorf("currency %s has a negative magnitude", cc.Id)
		}
		currencies[cc.Id] = models.NewCryptoCurrency(cc.Id, cc.Ticker, cc.Name, cc.Magnitude, cc.App)
	}
	for _, cc := range c.Currencies {
		currency := currencies[cc.Id]
		if cc.Parent != "" {
			parent, ok := currencies[cc.Parent]
			if !ok {
				return nil, fmt.Errorf("token %s has unknown parent %s", cc.Id, cc.Parent)
			}
			*currency = *models.NewTokenCurrency(cc.Id, cc.Ticker, cc.Name, cc.Magnitude, parent)
		}
		directory.Currencies = append(directory.Currencies, currency)
	}

	accounts := make(map[string]*models.Account, len(c.Accounts))
	build := func(ac AccountConfig, parent *models.Account) error {
		if ac.Id == "" || ac.Currency == "" {
			return fmt.Errorf("account %q missing id or currency", ac.Name)
		}
		if _, exists := accounts[ac.Id]; exists {
			return fmt.Errorf("duplicate account %s", ac.Id)
		}
		currency, ok := currencies[ac.Currency]
		if !ok {
			return fmt.Errorf("account %s has unknown currency %s", ac.Id, ac.Currency)
		}

		balance := decimal.Zero
		if ac.Balance != "" {
			parsed, err := decimal.NewFromString(ac.Balance)
			if err != nil {
				return fmt.Errorf("account %s has invalid balance %q: %w", ac.Id, ac.Balance, err)
			}
			if parsed.IsNegative() {
				return fmt.Errorf("account %s has a negative balance", ac.Id)
			}
			balance = models.SmallestUnit(parsed, currency)
		}

		var account *models.Account
		if parent != nil {
			account = models.NewTokenAccount(ac.Id, ac.Name, currency, balance, parent)
		} else {
			account = models.NewBaseAccount(ac.Id, ac.Name, currency, balance)
			account.DerivationPath = ac.DerivationPath
		}
		if ac.Address != "" {
			account.FreshAddress = ac.Address
		}
		accounts[ac.Id] = account
		return nil
	}

	for _, ac := range c.Accounts {
		if ac.Parent == "" {
			if err := build(ac, nil); err != nil {
				return nil, err
			}
		}
	}
	for _, ac := range c.Accounts {
		if ac.Parent == "" {
			continue
		}
		parent, ok := accounts[ac.Parent]
		if !ok || parent.IsToken() {
			return nil, fmt.Errorf("token account %s has unknown parent %s", ac.Id, ac.Parent)
		}
		if err := build(ac, parent); err != nil {
			return nil, err
		}
	}

	// keep declaration order
	for _, ac := range c.Accounts {
		directory.Accounts = append(directory.Accounts, accounts[ac.Id])
	}

	return directory, nil
}
