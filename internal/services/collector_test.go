package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/pointmart/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCollector(t *testing.T) {
	c := NewMemoryCollector()
	ctx := context.Background()

	n, err := c.Add(ctx, 1, models.CollectedFile{AssetID: "11", Handle: "h-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = c.Add(ctx, 1, models.CollectedFile{AssetID: "12", Handle: "h-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = c.Add(ctx, 2, models.CollectedFile{AssetID: "13", Handle: "h-3"})
	require.NoError(t, err)

	files, err := c.Drain(ctx, 1)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "11", files[0].AssetID)

	files, err = c.Drain(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, c.Reset(ctx, 2))
	files, err = c.Drain(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRedisCollector(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCollector(db, time.Hour)
	ctx := context.Background()

	file := models.CollectedFile{AssetID: "2301326979", Handle: "h-1", Name: "shutterstock_2301326979.jpg"}
	data, err := json.Marshal(file)
	require.NoError(t, err)

	t.Run("add pushes and refreshes the ttl", func(t *testing.T) {
		mock.ExpectRPush("collect:5", data).SetVal(3)
		mock.ExpectExpire("collect:5", time.Hour).SetVal(true)

		n, err := c.Add(ctx, 5, file)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("drain reads then clears", func(t *testing.T) {
		mock.ExpectLRange("collect:5", 0, -1).SetVal([]string{string(data)})
		mock.ExpectDel("collect:5").SetVal(1)

		files, err := c.Drain(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []models.CollectedFile{file}, files)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt entry is a storage error", func(t *testing.T) {
		mock.ExpectLRange("collect:5", 0, -1).SetVal([]string{"{"})

		_, err := c.Drain(ctx, 5)
		assert.ErrorIs(t, err, models.ErrStorage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reset deletes the list", func(t *testing.T) {
		mock.ExpectDel("collect:5").SetErr(errors.New("connection refused"))

		assert.ErrorIs(t, c.Reset(ctx, 5), models.ErrStorage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
