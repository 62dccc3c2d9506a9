// Package domain defines the storage domain model: the declared logical keys, their
// sensitivity, the schema version marker and the lifecycle state of the storage
// service.
package domain

// Logical storage keys.
const (
	KeyAuthToken          = "auth_token"
	KeyRefreshToken       = "refresh_token"
	KeyUserProfile        = "user_profile"
	KeyRecipients         = "recipients"
	KeyActiveRecipient    = "active_recipient"
	KeyRecipientsBackup   = "recipients_backup"
	KeyGifts              = "gifts"
	KeySavedGifts         = "saved_gifts"
	KeyPurchasedGifts     = "purchased_gifts"
	KeyOnboardingDraft    = "onboarding_draft"
	KeyTheme              = "theme"
	KeyUserPreferences    = "user_preferences"
	KeyOnboardingComplete = "onboarding_complete"
	KeyAnalyticsEvents    = "analytics_events"
	KeyFeatureFlags       = "feature_flags"
	KeyStorageVersion     = "storage_version"
)

// SchemaVersion is the current storage schema. A different persisted marker
// triggers migrations on initialization.
const SchemaVersion = "2.0.0"

// DeprecatedKeys were written by earlier schemas and are dropped by migration.
var DeprecatedKeys = []string{
	"auth_user_legacy",
	"gift_cache",
}
