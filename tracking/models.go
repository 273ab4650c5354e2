package tracking

import (
	"database/sql"
	"encoding/json"

	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/logger"
)

// CreateModelVersion registers a new version of a model. The registered model
// row is created on first use; versions count up from 1 per model name.
func (s *Store) CreateModelVersion(in NewModelVersion) (*ModelVersion, error) {
	if in.ModelName == "" {
		return nil, errors.New("model name cannot be empty")
	}
	if len(in.Artifact) == 0 {
		return nil, errors.Newf("model %s: artifact is empty", in.ModelName)
	}

	signature, err := json.Marshal(in.Signature)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode signature")
	}
	example, err := json.Marshal(in.InputExample)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode input example")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin model version transaction")
	}
	defer tx.Rollback()

	now := s.now()
	if _, err := tx.Exec(`INSERT OR IGNORE INTO registered_models (name, created_at) VALUES (?, ?)`, in.ModelName, now); err != nil {
		return nil, errors.Wrapf(err, "failed to register model %s", in.ModelName)
	}

	var version int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(version), 0) + 1 FROM model_versions WHERE model_name = ?`, in.ModelName).Scan(&version); err != nil {
		return nil, errors.Wrapf(err, "failed to allocate version for %s", in.ModelName)
	}

	_, err = tx.Exec(`INSERT INTO model_versions
		(model_name, version, run_id, artifact, artifact_size, descriptor, signature, input_example, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ModelName, version, in.RunID, in.Artifact, in.ArtifactSize, in.Descriptor,
		string(signature), string(example), now)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to insert version %d of %s", version, in.ModelName)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrapf(err, "failed to commit version %d of %s", version, in.ModelName)
	}

	s.logger.Infow("Model version registered",
		logger.FieldModelName, in.ModelName,
		logger.FieldVersion, version,
		logger.FieldRunID, in.RunID,
	)

	return &ModelVersion{
		ModelName:    in.ModelName,
		Version:      version,
		RunID:        in.RunID,
		ArtifactSize: in.ArtifactSize,
		Descriptor:   in.Descriptor,
		Signature:    in.Signature,
		InputExample: in.InputExample,
		CreatedAt:    now,
		Artifact:     in.Artifact,
	}, nil
}

const versionColumns = `model_name, version, run_id, artifact_size, descriptor, signature, input_example, created_at`

func scanVersion(row rowScanner, extra ...any) (*ModelVersion, error) {
	var mv ModelVersion
	var signature, example string
	dest := append([]any{
		&mv.ModelName, &mv.Version, &mv.RunID, &mv.ArtifactSize,
		&mv.Descriptor, &signature, &example, &mv.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(signature), &mv.Signature); err != nil {
		return nil, errors.Wrapf(err, "failed to decode signature of %s v%d", mv.ModelName, mv.Version)
	}
	if err := json.Unmarshal([]byte(example), &mv.InputExample); err != nil {
		return nil, errors.Wrapf(err, "failed to decode input example of %s v%d", mv.ModelName, mv.Version)
	}
	return &mv, nil
}

// ListModelVersions returns the versions of a model, newest first, without
// artifact bytes. An empty name lists every model.
func (s *Store) ListModelVersions(name string) ([]ModelVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM model_versions`
	var args []any
	if name != "" {
		query += ` WHERE model_name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY model_name, version DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list model versions")
	}
	defer rows.Close()

	var out []ModelVersion
	for rows.Next() {
		mv, err := scanVersion(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan model version")
		}
		out = append(out, *mv)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate model versions")
}

// GetModelVersion returns one version of a model, artifact included
func (s *Store) GetModelVersion(name string, version int) (*ModelVersion, error) {
	var artifact []byte
	mv, err := scanVersion(s.db.QueryRow(
		`SELECT `+versionColumns+`, artifact FROM model_versions WHERE model_name = ? AND version = ?`,
		name, version), &artifact)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("model %s version %d not found", name, version)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get model %s version %d", name, version)
	}
	mv.Artifact = artifact
	return mv, nil
}

// LatestModelVersion returns the highest version of a model, artifact included
func (s *Store) LatestModelVersion(name string) (*ModelVersion, error) {
	var version int
	err := s.db.QueryRow(`SELECT version FROM model_versions WHERE model_name = ? ORDER BY version DESC LIMIT 1`, name).Scan(&version)
	if err == sql.ErrNoRows {
		return nil, errors.WithHint(
			errors.NewNotFoundError("model %s has no registered versions", name),
			"run `tripline run` to train and register one",
		)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find latest version of %s", name)
	}
	return s.GetModelVersion(name, version)
}
