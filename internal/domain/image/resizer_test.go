package image

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-resizer-go/internal/domain/eventbus"
	platformerrors "image-resizer-go/internal/platform/errors"
)

func TestResizer_Process_MixedBatch(t *testing.T) {
	pub := &recordingPublisher{}
	r := New(Options{Publisher: pub})
	good := pngBytes(t, gradient(20, 20))

	report, err := r.Process(context.Background(), []RawItem{
		{Name: "first.png", Data: good},
		{Name: "second.png", Data: good},
		{Name: "broken.png", Data: []byte("garbage")},
		{Name: "readme.txt", Data: []byte("ignored")},
	}, ResizeSpec{Width: 800, Height: 600})

	require.NoError(t, err)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, 1, report.FailureCount)
	assert.Equal(t, "resized_images_800x600.zip", report.SuggestedFileName)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "broken.png", report.Failures[0].SourceName)

	zr, err := zip.NewReader(bytes.NewReader(report.ArchiveBytes), int64(len(report.ArchiveBytes)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "resized_first_800x600.png", zr.File[0].Name)
	assert.Equal(t, "resized_second_800x600.png", zr.File[1].Name)

	started := pub.data[0].(eventbus.BatchStartedData)
	assert.NotEmpty(t, started.BatchID)
	assert.Equal(t, 3, started.Items)
}

func TestResizer_Process_Rejections(t *testing.T) {
	good := pngBytes(t, gradient(4, 4))
	many := make([]RawItem, 21)
	for i := range many {
		many[i] = RawItem{Name: fmt.Sprintf("p%d.png", i), Data: good}
	}

	tests := []struct {
		name  string
		items []RawItem
		spec  ResizeSpec
		want  error
		kind  platformerrors.Kind
	}{
		{"no valid images", []RawItem{{Name: "a.txt"}}, ResizeSpec{Width: 1, Height: 1}, ErrNoValidImages, platformerrors.KindAdmission},
		{"too many files", many, ResizeSpec{Width: 1, Height: 1}, ErrTooManyFiles, platformerrors.KindAdmission},
		{"invalid spec", []RawItem{{Name: "a.png", Data: good}}, ResizeSpec{Width: 0, Height: 1}, ErrInvalidSpec, platformerrors.KindAdmission},
		{"nothing succeeded", []RawItem{{Name: "a.png", Data: []byte("x")}}, ResizeSpec{Width: 1, Height: 1}, ErrNoSuccess, platformerrors.KindBatch},
	}

	r := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := r.Process(context.Background(), tt.items, tt.spec)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.kind, platformerrors.KindOf(err))
		})
	}
}

func TestResizer_Process_ConvertsFormat(t *testing.T) {
	r := New(Options{JPEGQuality: 80})

	report, err := r.Process(context.Background(), []RawItem{
		{Name: "photo.jpg", Data: jpegBytes(t, gradient(30, 20))},
	}, ResizeSpec{Width: 100, Height: 100, Format: FormatPNG})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(report.ArchiveBytes), int64(len(report.ArchiveBytes)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "resized_photo_100x100.png", zr.File[0].Name)
}

func TestResizer_Limits(t *testing.T) {
	r := New(Options{Limits: Limits{MaxItems: 5}})
	assert.Equal(t, 5, r.Limits().MaxItems)
	assert.Equal(t, int64(DefaultMaxTotalBytes), r.Limits().MaxTotalBytes)
}

func TestResizer_CompressionLevel(t *testing.T) {
	items := []RawItem{{Name: "g.png", Data: pngBytes(t, gradient(16, 16))}}
	spec := ResizeSpec{Width: 16, Height: 16, Format: FormatBMP}
	store := flate.NoCompression

	tests := []struct {
		name   string
		level  *int
		method uint16
	}{
		{"unset uses deflate", nil, zip.Deflate},
		{"zero stores entries", &store, zip.Store},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := New(Options{CompressionLevel: tt.level}).Process(context.Background(), items, spec)
			require.NoError(t, err)

			zr, err := zip.NewReader(bytes.NewReader(report.ArchiveBytes), int64(len(report.ArchiveBytes)))
			require.NoError(t, err)
			require.Len(t, zr.File, 1)
			assert.Equal(t, tt.method, zr.File[0].Method)
			if tt.method == zip.Store {
				assert.Equal(t, zr.File[0].UncompressedSize64, zr.File[0].CompressedSize64)
			}
		})
	}
}
