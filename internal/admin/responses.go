package admin

// StatsResponse reports the number of stored entities per kind.
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// ReloadResponse reports the size of the reloaded user seed.
type ReloadResponse struct {
	Users int `json:"users"`
}
