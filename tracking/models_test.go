package tracking

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/tripline/errors"
)

func newVersionInput(t *testing.T, s *Store, name string) NewModelVersion {
	t.Helper()
	exp, err := s.GetOrCreateExperiment("e")
	require.NoError(t, err)
	run, err := s.StartRun(exp.ID)
	require.NoError(t, err)

	return NewModelVersion{
		ModelName:    name,
		RunID:        run.ID,
		Artifact:     []byte{0x81, 0xa1, 0x61, 0x01},
		ArtifactSize: 4,
		Descriptor:   "flavors: {}\n",
		Signature: Signature{
			Inputs:  []TensorSpec{{Type: "tensor", DType: "float64", Shape: []int{-1, 7}}},
			Outputs: []TensorSpec{{Type: "tensor", DType: "float64", Shape: []int{-1}}},
		},
		InputExample: InputExample{
			Columns: []string{"a", "b"},
			Data:    [][]float64{{1, 0}, {0, 2.5}},
		},
	}
}

func TestCreateModelVersion_Increments(t *testing.T) {
	s := newTestStore(t)

	v1, err := s.CreateModelVersion(newVersionInput(t, s, "taxi"))
	require.NoError(t, err)
	v2, err := s.CreateModelVersion(newVersionInput(t, s, "taxi"))
	require.NoError(t, err)
	other, err := s.CreateModelVersion(newVersionInput(t, s, "other"))
	require.NoError(t, err)

	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, 1, other.Version)

	versions, err := s.ListModelVersions("taxi")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)
	assert.Nil(t, versions[0].Artifact, "listing does not load artifacts")
	assert.Equal(t, int64(4), versions[0].ArtifactSize)

	all, err := s.ListModelVersions("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGetModelVersion_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	in := newVersionInput(t, s, "taxi")

	created, err := s.CreateModelVersion(in)
	require.NoError(t, err)

	got, err := s.GetModelVersion("taxi", created.Version)
	require.NoError(t, err)
	assert.Equal(t, in.Artifact, got.Artifact)
	assert.Equal(t, in.Signature, got.Signature)
	assert.Equal(t, in.InputExample, got.InputExample)
	assert.Equal(t, in.Descriptor, got.Descriptor)
	assert.Equal(t, in.RunID, got.RunID)
}

func TestLatestModelVersion(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LatestModelVersion("taxi")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
	assert.NotEmpty(t, errors.GetAllHints(err))

	_, err = s.CreateModelVersion(newVersionInput(t, s, "taxi"))
	require.NoError(t, err)
	in := newVersionInput(t, s, "taxi")
	_, err = s.CreateModelVersion(in)
	require.NoError(t, err)

	latest, err := s.LatestModelVersion("taxi")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, in.RunID, latest.RunID)
}

func TestGetModelVersion_NotFound(t *testing.T) {
	_, err := newTestStore(t).GetModelVersion("taxi", 9)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestCreateModelVersion_Validation(t *testing.T) {
	s := newTestStore(t)

	in := newVersionInput(t, s, "")
	_, err := s.CreateModelVersion(in)
	assert.Error(t, err)

	in = newVersionInput(t, s, "taxi")
	in.Artifact = nil
	_, err = s.CreateModelVersion(in)
	assert.Error(t, err)

	in = newVersionInput(t, s, "taxi")
	in.RunID = "no-such-run"
	_, err = s.CreateModelVersion(in)
	assert.Error(t, err, "run foreign key is enforced")

	versions, err := s.ListModelVersions("taxi")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestCreateModelVersion_RollsBack_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewStore(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT OR IGNORE INTO registered_models`).
		WithArgs("taxi", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version\), 0\) \+ 1 FROM model_versions`).
		WithArgs("taxi").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
	mock.ExpectExec(`INSERT INTO model_versions`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = s.CreateModelVersion(NewModelVersion{ModelName: "taxi", RunID: "r", Artifact: []byte{1}, ArtifactSize: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version 3 of taxi")

	assert.NoError(t, mock.ExpectationsWereMet())
}
