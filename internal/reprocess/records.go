package reprocess

// Record shapes persisted under <backup_root>/<batch_id>/..., field names
// matching the spacing used by the original batch script's
// json.dump(..., indent=2) output.

type backedUpFile struct {
	OriginalPath string `json:"original_path"`
	BackupPath   string `json:"backup_path"`
}

type backupMetadata struct {
	Timestamp string         `json:"timestamp"`
	FileID    string         `json:"file_id"`
	BatchID   string         `json:"batch_id"`
	Files     []backedUpFile `json:"files"`
}

type preservationMarker struct {
	ProcessedAt string   `json:"processed_at"`
	Languages   []string `json:"languages"`
	Success     bool     `json:"success"`
}

type languageStatusRecord struct {
	FileID    string `json:"file_id"`
	Language  string `json:"language"`
	UpdatedAt string `json:"updated_at"`
}

type statusSnapshot struct {
	BatchID        string  `json:"batch_id"`
	Processed      int     `json:"processed"`
	Total          int     `json:"total"`
	Successful     int     `json:"successful"`
	Failed         int     `json:"failed"`
	CurrentFileID  string  `json:"current_file_id"`
	LastDurationS  float64 `json:"last_duration_s"`
	AvgDurationS   float64 `json:"avg_duration_s"`
	ElapsedS       float64 `json:"elapsed_s"`
	ETAS           float64 `json:"eta_s"`
	ProcessingRate float64 `json:"processing_rate"`
	UpdatedAt      string  `json:"updated_at"`
	ProgressPct    float64 `json:"progress_pct"`
	HumanProgress  string  `json:"human_progress"`
}
