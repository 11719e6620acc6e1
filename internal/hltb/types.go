package hltb

// GameRecord is the catalog's completion-time record for a single game.
// Hour fields are non-negative; zero means "no data", not "zero time".
// Records are immutable once produced; fresher data replaces them wholesale.
type GameRecord struct {
	ID                  int64   `json:"id"`
	Title               string  `json:"title"`
	MainHours           float64 `json:"main_hours"`
	MainPlusExtrasHours float64 `json:"main_plus_extras_hours"`
	CompletionistHours  float64 `json:"completionist_hours"`
	SteamAppID          int64   `json:"steam_app_id,omitempty"`
}

// SearchResult is one ranked candidate from the search endpoint, in the
// API's own relevance order.
type SearchResult struct {
	Record GameRecord
}

// LibraryMapping links a storefront app ID to its catalog game ID, as
// returned by the bulk-import endpoint.
type LibraryMapping struct {
	StorefrontID int64
	CatalogID    int64
	Title        string
}

// wireGame mirrors the catalog's loosely-typed game payload. Completion
// fields arrive as seconds.
type wireGame struct {
	GameID       int64  `json:"game_id"`
	GameName     string `json:"game_name"`
	CompMain     int64  `json:"comp_main"`
	CompPlus     int64  `json:"comp_plus"`
	Comp100      int64  `json:"comp_100"`
	ProfileSteam int64  `json:"profile_steam"`
}

func (w wireGame) record() GameRecord {
	return GameRecord{
		ID:                  w.GameID,
		Title:               w.GameName,
		MainHours:           secondsToHours(w.CompMain),
		MainPlusExtrasHours: secondsToHours(w.CompPlus),
		CompletionistHours:  secondsToHours(w.Comp100),
		SteamAppID:          w.ProfileSteam,
	}
}

type searchResponse struct {
	Data []wireGame `json:"data"`
}

type detailResponse struct {
	PageProps struct {
		Game struct {
			Data struct {
				Game []wireGame `json:"game"`
			} `json:"data"`
		} `json:"game"`
	} `json:"pageProps"`
}

type wireLibraryEntry struct {
	SteamID  int64  `json:"steam_id"`
	GameID   int64  `json:"game_id"`
	GameName string `json:"game_name"`
}

type libraryResponse struct {
	Data []wireLibraryEntry `json:"data"`
}

func secondsToHours(seconds int64) float64 {
	if seconds <= 0 {
		return 0
	}
	return float64(seconds) / 3600
}
