package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"storyreel/types"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type assemblyRecord struct {
	ID        string         `gorm:"primaryKey;size:64" json:"id"`
	Title     string         `gorm:"size:255" json:"title"`
	WorkDir   string         `gorm:"type:text" json:"work_dir"`
	Mode      string         `gorm:"size:8" json:"mode"`
	Provider  string         `gorm:"size:32" json:"provider"`
	Style     string         `gorm:"size:16" json:"style"`
	Status    string         `gorm:"size:16;index;default:'PENDING'" json:"status"`
	Output    string         `gorm:"type:text" json:"output,omitempty"`
	OutputURI string         `gorm:"type:text" json:"output_uri,omitempty"`
	Error     string         `gorm:"type:text" json:"error,omitempty"`
	Options   datatypes.JSON `gorm:"type:jsonb" json:"options"`
	Scenes    datatypes.JSON `gorm:"type:jsonb" json:"scenes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
}

func (assemblyRecord) TableName() string {
	return "assemblies"
}

type assetRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AssemblyID string    `gorm:"size:64;not null;uniqueIndex:idx_asset_slot,priority:1" json:"assembly_id"`
	SceneIndex int       `gorm:"not null;uniqueIndex:idx_asset_slot,priority:2" json:"scene_index"`
	Position   int       `gorm:"not null;uniqueIndex:idx_asset_slot,priority:3" json:"position"`
	Prompt     string    `gorm:"type:text" json:"prompt"`
	Path       string    `gorm:"type:text" json:"path"`
	Kind       string    `gorm:"size:16" json:"kind"`
	Provider   string    `gorm:"size:32" json:"provider"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (assetRecord) TableName() string {
	return "visual_assets"
}

// assemblyOptions holds the render options that are only read back whole
type assemblyOptions struct {
	Background     *types.Background `json:"background,omitempty"`
	AvatarImage    string            `json:"avatar_image,omitempty"`
	AvatarRequired bool              `json:"avatar_required"`
	Music          string            `json:"music,omitempty"`
	Intro          string            `json:"intro,omitempty"`
	Outro          string            `json:"outro,omitempty"`
	Subtitles      bool              `json:"subtitles"`
}

// sceneRow is a scene without its assets; assets live in visual_assets
type sceneRow struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	AudioPath string `json:"audio_path"`
	IsLast    bool   `json:"is_last"`
}

// Postgres stores assemblies with gorm
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the schema
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}

	p := NewPostgres(db)
	if err := p.Migrate(); err != nil {
		return nil, err
	}
	log.Println("Database connected successfully")
	return p, nil
}

// NewPostgres wraps an open connection
func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Migrate() error {
	if err := p.db.AutoMigrate(&assemblyRecord{}, &assetRecord{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func (p *Postgres) SaveAssembly(ctx context.Context, a *types.Assembly) error {
	rec, assets, err := toRecords(a)
	if err != nil {
		return err
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to save assembly %s: %w", a.ID, err)
		}
		for i := range assets {
			if err := upsertAsset(tx, &assets[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Postgres) GetAssembly(ctx context.Context, id string) (*types.Assembly, error) {
	db := p.db.WithContext(ctx)

	var rec assemblyRecord
	if err := db.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	var assets []assetRecord
	if err := db.Where("assembly_id = ?", id).Order("scene_index, position").Find(&assets).Error; err != nil {
		return nil, err
	}
	return fromRecords(rec, assets)
}

func (p *Postgres) SaveAsset(ctx context.Context, assemblyID string, asset types.VisualAsset) error {
	rec := toAssetRecord(assemblyID, asset)
	return upsertAsset(p.db.WithContext(ctx), &rec)
}

func (p *Postgres) UpdateStatus(ctx context.Context, id string, status types.Status, output, outputURI, errMsg string) error {
	res := p.db.WithContext(ctx).Model(&assemblyRecord{}).Where("id = ?", id).Updates(map[string]any{
		"status":     string(status),
		"output":     output,
		"output_uri": outputURI,
		"error":      errMsg,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (p *Postgres) ListFinishedBefore(ctx context.Context, t time.Time) ([]*types.Assembly, error) {
	var recs []assemblyRecord
	err := p.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []string{string(types.StatusCompleted), string(types.StatusFailed)}, t).
		Order("updated_at").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	out := make([]*types.Assembly, 0, len(recs))
	for _, rec := range recs {
		a, err := fromRecords(rec, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func upsertAsset(tx *gorm.DB, rec *assetRecord) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assembly_id"}, {Name: "scene_index"}, {Name: "position"}},
		DoUpdates: clause.AssignmentColumns([]string{"prompt", "path", "kind", "provider", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to save asset %d/%d of %s: %w", rec.SceneIndex, rec.Position, rec.AssemblyID, err)
	}
	return nil
}

func toRecords(a *types.Assembly) (assemblyRecord, []assetRecord, error) {
	opts, err := json.Marshal(assemblyOptions{
		Background:     a.Background,
		AvatarImage:    a.AvatarImage,
		AvatarRequired: a.AvatarRequired,
		Music:          a.Music,
		Intro:          a.Intro,
		Outro:          a.Outro,
		Subtitles:      a.Subtitles,
	})
	if err != nil {
		return assemblyRecord{}, nil, err
	}

	rows := make([]sceneRow, len(a.Scenes))
	var assets []assetRecord
	for i, s := range a.Scenes {
		rows[i] = sceneRow{Index: s.Index, Text: s.Text, AudioPath: s.AudioPath, IsLast: s.IsLast}
		for _, v := range s.Assets {
			assets = append(assets, toAssetRecord(a.ID, v))
		}
	}
	scenes, err := json.Marshal(rows)
	if err != nil {
		return assemblyRecord{}, nil, err
	}

	rec := assemblyRecord{
		ID:        a.ID,
		Title:     a.Title,
		WorkDir:   a.WorkDir,
		Mode:      string(a.Mode),
		Provider:  a.Provider,
		Style:     a.Style,
		Status:    string(a.Status),
		Output:    a.Output,
		OutputURI: a.OutputURI,
		Error:     a.Error,
		Options:   datatypes.JSON(opts),
		Scenes:    datatypes.JSON(scenes),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	return rec, assets, nil
}

func toAssetRecord(assemblyID string, v types.VisualAsset) assetRecord {
	return assetRecord{
		AssemblyID: assemblyID,
		SceneIndex: v.SceneIndex,
		Position:   v.Position,
		Prompt:     v.Prompt,
		Path:       v.Path,
		Kind:       string(v.Kind),
		Provider:   v.Provider,
	}
}

func fromRecords(rec assemblyRecord, assets []assetRecord) (*types.Assembly, error) {
	var opts assemblyOptions
	if len(rec.Options) > 0 {
		if err := json.Unmarshal(rec.Options, &opts); err != nil {
			return nil, fmt.Errorf("corrupt options for %s: %w", rec.ID, err)
		}
	}
	var rows []sceneRow
	if len(rec.Scenes) > 0 {
		if err := json.Unmarshal(rec.Scenes, &rows); err != nil {
			return nil, fmt.Errorf("corrupt scenes for %s: %w", rec.ID, err)
		}
	}

	a := &types.Assembly{
		ID:             rec.ID,
		Title:          rec.Title,
		WorkDir:        rec.WorkDir,
		Mode:           types.Mode(rec.Mode),
		Provider:       rec.Provider,
		Style:          rec.Style,
		Background:     opts.Background,
		AvatarImage:    opts.AvatarImage,
		AvatarRequired: opts.AvatarRequired,
		Music:          opts.Music,
		Intro:          opts.Intro,
		Outro:          opts.Outro,
		Subtitles:      opts.Subtitles,
		Status:         types.Status(rec.Status),
		Output:         rec.Output,
		OutputURI:      rec.OutputURI,
		Error:          rec.Error,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		Scenes:         make([]types.Scene, len(rows)),
	}
	for i, r := range rows {
		a.Scenes[i] = types.Scene{Index: r.Index, Text: r.Text, AudioPath: r.AudioPath, IsLast: r.IsLast}
	}
	for _, ar := range assets {
		err := placeAsset(a, types.VisualAsset{
			SceneIndex: ar.SceneIndex,
			Position:   ar.Position,
			Prompt:     ar.Prompt,
			Path:       ar.Path,
			Kind:       types.AssetKind(ar.Kind),
			Provider:   ar.Provider,
		})
		if err != nil {
			return nil, fmt.Errorf("asset %d/%d of %s: %w", ar.SceneIndex, ar.Position, rec.ID, err)
		}
	}
	return a, nil
}
