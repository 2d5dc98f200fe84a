package redis

import (
	"fmt"

	"github.com/ghozitech/ledger/internal/model"
)

// Key prefix for all ledger data
const keyPrefix = "ghozi"

// userKey returns the Redis key for a UserAggregate
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// usersIndexKey returns the Redis key for the SET of all user IDs
func usersIndexKey() string {
	return fmt.Sprintf("%s:idx:users", keyPrefix)
}

// credentialsKey returns the Redis key for a user's Credentials
func credentialsKey(userID model.UserID) string {
	return fmt.Sprintf("%s:credentials:%s", keyPrefix, userID)
}

// emailIndexKey returns the Redis key for the email -> user_id index
func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", keyPrefix, email)
}

// completionsKey returns the Redis key for a user's completion LIST (newest first)
func completionsKey(userID model.UserID) string {
	return fmt.Sprintf("%s:completions:%s", keyPrefix, userID)
}

// redemptionKey returns the Redis key for a RedemptionRequest
func redemptionKey(id string) string {
	return fmt.Sprintf("%s:redemption:%s", keyPrefix, id)
}

// redemptionsForUserIndexKey returns the Redis key for the LIST of a user's redemption IDs
func redemptionsForUserIndexKey(userID model.UserID) string {
	return fmt.Sprintf("%s:idx:redemptions_for_user:%s", keyPrefix, userID)
}
