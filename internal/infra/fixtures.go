package infra

import (
	"encoding/base64"
	"fmt"
	"os"

	"drv_adapter/internal/domain"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

// AccountFixture is one captured account in a YAML dump. Data is base64.
type AccountFixture struct {
	Address string `yaml:"address"`
	Slot    uint64 `yaml:"slot"`
	Data    string `yaml:"data"`
}

type fixtureFile struct {
	Accounts []AccountFixture `yaml:"accounts"`
}

// LoadAccountFixtures parses a YAML account dump into storage records.
func LoadAccountFixtures(path string) ([]domain.AccountRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file fixtureFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}

	records := make([]domain.AccountRecord, 0, len(file.Accounts))
	for i, a := range file.Accounts {
		addr, err := solana.PublicKeyFromBase58(a.Address)
		if err != nil {
			return nil, fmt.Errorf("fixture %d address: %w", i, err)
		}
		data, err := base64.StdEncoding.DecodeString(a.Data)
		if err != nil {
			return nil, fmt.Errorf("fixture %d data: %w", i, err)
		}
		records = append(records, domain.AccountRecord{Address: addr.String(), Data: data, Slot: a.Slot})
	}
	return records, nil
}

// SaveAccountFixtures writes records as a YAML account dump.
func SaveAccountFixtures(path string, records []domain.AccountRecord) error {
	file := fixtureFile{Accounts: make([]AccountFixture, 0, len(records))}
	for _, r := range records {
		file.Accounts = append(file.Accounts, AccountFixture{
			Address: r.Address,
			Slot:    r.Slot,
			Data:    base64.StdEncoding.EncodeToString(r.Data),
		})
	}

	out, err := yaml.Marshal(&file)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
