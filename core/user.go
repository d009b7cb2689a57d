package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// User is the identity record backing a wallet address. The ID is the JWT
// subject and is immutable once created; the wallet address is unique.
type User struct {
	ID            string          `json:"id"`
	WalletAddress string          `json:"walletAddress"`
	Username      string          `json:"username"`
	Bio           string          `json:"bio,omitempty"`
	ProfileImage  string          `json:"profileImage,omitempty"`
	TokenBalance  decimal.Decimal `json:"tokenBalance"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// DefaultUsername derives a display name from a lowercase wallet address,
// e.g. 0xab12...  ->  user_ab12.
func DefaultUsername(walletAddress string) string {
	if len(walletAddress) < 6 {
		return "user_" + walletAddress
	}
	return fmt.Sprintf("user_%s", walletAddress[2:6])
}
