package userstore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/predictprotocol/walletauth/core"
)

// UserDao is a data access object that maps directly to the 'users' table in PostgreSQL.
type UserDao struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	ID            string          `bun:"id,pk,type:uuid"`
	WalletAddress string          `bun:"wallet_address,unique,notnull,type:varchar(42)"`
	Username      string          `bun:"username,notnull,type:varchar(64)"`
	Bio           *string         `bun:"bio,type:text"`
	ProfileImage  *string         `bun:"profile_image_url,type:varchar(500)"`
	TokenBalance  decimal.Decimal `bun:"token_balance,nullzero,type:numeric(38,18)"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero,default:current_timestamp"`
}

// toUserDao converts a core.User to UserDao.
func toUserDao(usr *core.User) *UserDao {
	dao := &UserDao{
		ID:            usr.ID,
		WalletAddress: usr.WalletAddress,
		Username:      usr.Username,
		TokenBalance:  usr.TokenBalance,
		CreatedAt:     usr.CreatedAt,
		UpdatedAt:     usr.UpdatedAt,
	}

	if usr.Bio != "" {
		dao.Bio = &usr.Bio
	}
	if usr.ProfileImage != "" {
		dao.ProfileImage = &usr.ProfileImage
	}

	return dao
}

// toUser converts a UserDao to core.User.
func toUser(dao *UserDao) *core.User {
	usr := &core.User{
		ID:            dao.ID,
		WalletAddress: dao.WalletAddress,
		Username:      dao.Username,
		TokenBalance:  dao.TokenBalance,
		CreatedAt:     dao.CreatedAt,
		UpdatedAt:     dao.UpdatedAt,
	}

	if dao.Bio != nil {
		usr.Bio = *dao.Bio
	}
	if dao.ProfileImage != nil {
		usr.ProfileImage = *dao.ProfileImage
	}

	return usr
}
