package excel

// RawRowData represents a row of raw table data as header-keyed strings
type RawRowData map[string]string

// TableData represents a complete CSV or XLSX sheet
type TableData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// HasColumn reports whether the header row contains name.
func (t *TableData) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Match table column names.
const (
	ColDate       = "Date"
	ColPlayerI    = "P_i"
	ColPlayerJ    = "P_j"
	ColWinner     = "Winner"
	ColLoser      = "Loser"
	ColAvgW       = "AvgW"
	ColAvgL       = "AvgL"
	ColB365W      = "B365W"
	ColB365L      = "B365L"
	ColTournament = "Tournament"
	ColSeries     = "Series"
	ColEloI       = "Elo_i_before_match"
	ColEloJ       = "Elo_j_before_match"
)

// RequiredColumns must be present in every match table.
var RequiredColumns = []string{ColDate, ColPlayerI, ColPlayerJ, ColWinner, ColLoser}

// ResultColumns is the header of the result table, in output order.
var ResultColumns = []string{
	"player1", "player2", "results_set", "upset_results_set",
	"num_runs_s1", "num_non_upset", "num_upsets", "num_matches",
	"ww_z_s1", "p_val_1_s1", "p_val_2_s1",
	"num_runs_s2", "num_uw", "num_ul",
	"ww_z_s2", "p_val_1_s2", "p_val_2_s2",
	"p_val_1_s1_adj", "p_val_2_s1_adj", "p_val_1_s2_adj", "p_val_2_s2_adj",
	"state",
}
