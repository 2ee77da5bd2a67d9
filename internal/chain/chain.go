// Package chain fabricates blockchain transaction references for display.
// Hashes and block numbers are cosmetic; Verify checks string shape only,
// there is no ledger behind them.
package chain

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const (
	explorerBase = "https://mumbai.polygonscan.com/tx/"
	hexDigits    = "0123456789abcdef"

	// Synthetic block numbers sit in a fixed testnet-looking range.
	baseBlock  = 30_000_000
	blockRange = 1_000_000
)

// Transaction is a simulated on-chain receipt.
type Transaction struct {
	Hash        string         `json:"hash"`
	HashShort   string         `json:"hash_short"`
	BlockNumber int64          `json:"block_number"`
	Timestamp   int64          `json:"timestamp"`
	Type        string         `json:"transaction_type"`
	Data        map[string]any `json:"data,omitempty"`
	ExplorerURL string         `json:"explorer_url"`
}

// Minter generates transactions. Rand and Now are injectable for
// deterministic tests.
type Minter struct {
	Rand *rand.Rand
	Now  func() time.Time
}

func (m Minter) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m Minter) intn(n int) int {
	if m.Rand != nil {
		return m.Rand.Intn(n)
	}
	return rand.Intn(n)
}

// Mint builds a transaction of the given type carrying arbitrary display
// data.
func (m Minter) Mint(txType string, data map[string]any) Transaction {
	hash := m.hash()
	return Transaction{
		Hash:        hash,
		HashShort:   Shorten(hash),
		BlockNumber: int64(baseBlock + m.intn(blockRange)),
		Timestamp:   m.now().UnixMilli(),
		Type:        txType,
		Data:        data,
		ExplorerURL: explorerBase + hash,
	}
}

func (m Minter) hash() string {
	var b strings.Builder
	b.WriteString("0x")
	for i := 0; i < 64; i++ {
		b.WriteByte(hexDigits[m.intn(len(hexDigits))])
	}
	return b.String()
}

func (m Minter) CropRegistration(productID, farmerID string) Transaction {
	return m.Mint("crop_registration", map[string]any{
		"product_id": productID,
		"farmer_id":  farmerID,
		"event":      "crop_registered",
	})
}

func (m Minter) StatusUpdate(shipmentID, status, location string) Transaction {
	return m.Mint("status_update", map[string]any{
		"shipment_id": shipmentID,
		"status":      status,
		"location":    location,
		"event":       "status_changed",
	})
}

func (m Minter) PaymentEscrow(paymentID, amount string) Transaction {
	return m.Mint("payment_escrow", map[string]any{
		"payment_id": paymentID,
		"amount":     amount,
		"event":      "escrow_created",
	})
}

func (m Minter) PaymentRelease(paymentID, recipient string) Transaction {
	return m.Mint("payment_release", map[string]any{
		"payment_id": paymentID,
		"recipient":  recipient,
		"event":      "payment_released",
	})
}

func (m Minter) TrustScoreUpdate(userID string, oldScore, newScore int) Transaction {
	return m.Mint("trust_update", map[string]any{
		"user_id":   userID,
		"old_score": oldScore,
		"new_score": newScore,
		"event":     "trust_score_updated",
	})
}

// Shorten abbreviates a hash for display: 0x1234...abcd.
func Shorten(hash string) string {
	if len(hash) < 10 {
		return hash
	}
	return fmt.Sprintf("%s...%s", hash[:6], hash[len(hash)-4:])
}

// Verify checks the reference shape: 0x followed by 64 hex characters.
func Verify(hash string) bool {
	if len(hash) != 66 || !strings.HasPrefix(hash, "0x") {
		return false
	}
	for _, c := range hash[2:] {
		if !strings.ContainsRune(hexDigits, c) {
			return false
		}
	}
	return true
}
