package cache

// Logical cache keys used by the application. Per-user data is stored under
// UserKey(name, uid) so users sharing a device never read each other's entries.
const (
	KeyUserCourses     = "userCourses"
	KeyUserDiscs       = "userDiscs"
	KeyActiveDiscs     = "activeDiscs"
	KeyArchivedDiscs   = "archivedDiscs"
	KeyUserRounds      = "userRounds"
	KeyHomeStats       = "homeStats"
	KeyNewsfeed        = "newsfeed"
	KeyAllUserProfiles = "allUserProfiles"
	KeyAllTeams        = "allTeams"
	KeyAPIDiscs        = "apiDiscs"
)

// TTL windows in minutes.
const (
	TTLDashboardMinutes = 15
	TTLCatalogMinutes   = 1440
)

// UserKey scopes a logical key to a user id.
func UserKey(logical, userID string) string {
	return logical + "-" + userID
}
