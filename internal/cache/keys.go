package cache

import "strconv"

const NamespaceProducts = "products"

func UserKey(id int64) string            { return "user:" + strconv.FormatInt(id, 10) }
func ProfileKey(id int64) string         { return "profile:" + strconv.FormatInt(id, 10) }
func ProductKey(id int64) string         { return "product:" + strconv.FormatInt(id, 10) }
func OrderKey(id int64) string           { return "order:" + strconv.FormatInt(id, 10) }
func DashboardKey(id int64) string       { return "dashboard:" + strconv.FormatInt(id, 10) }
func BlacklistKey(token string) string   { return "blacklist:" + token }
func VersionKey(namespace string) string { return "version:" + namespace }
func RevokedBeforeKey(id int64) string   { return "revoked_before:" + strconv.FormatInt(id, 10) }

// OrdersNamespace scopes the order list version stamp to one user.
func OrdersNamespace(userID int64) string {
	return "orders:" + strconv.FormatInt(userID, 10)
}

// ProductListKey is deterministic in the query shape. An empty category
// means all categories.
func ProductListKey(version string, page int, limit int, category string) string {
	return "products:list:" + version + ":" + strconv.Itoa(page) + ":" + strconv.Itoa(limit) + ":" + category
}

func OrderListKey(userID int64, version string, page int, limit int) string {
	return OrdersNamespace(userID) + ":list:" + version + ":" + strconv.Itoa(page) + ":" + strconv.Itoa(limit)
}
