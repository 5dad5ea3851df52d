package classifier_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"plantmart/internal/classifier"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header; enough for content sniffing
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

const healthyLeaf = `{
	"condition": "Powdery Mildew",
	"severity": "medium",
	"confidence": 87,
	"description": "White fungal growth on leaf surfaces.",
	"causes": ["High humidity"],
	"solutions": ["Remove affected leaves", "Apply sulfur fungicide"],
	"prevention": ["Improve air circulation"]
}`

func newClient(url string) *classifier.Client {
	return classifier.New(classifier.Config{URL: url}, validator.New())
}

func TestDiagnose_TooLargeIsRejectedWithoutRequest(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	img := classifier.Image{
		Filename:    "leaf.jpg",
		ContentType: "image/jpeg",
		Data:        make([]byte, 12<<20),
	}
	_, err := newClient(server.URL).Diagnose(context.Background(), img)

	var cerr *classifier.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Image size must be less than 10MB", cerr.Error())
	assert.True(t, cerr.Invalid)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestValidate(t *testing.T) {
	// exactly 10MB is accepted
	assert.NoError(t, classifier.Validate(classifier.Image{ContentType: "image/png", Data: make([]byte, classifier.MaxImageSize)}))

	err := classifier.Validate(classifier.Image{ContentType: "image/png", Data: make([]byte, classifier.MaxImageSize+1)})
	assert.EqualError(t, err, classifier.MsgTooLarge)

	err = classifier.Validate(classifier.Image{ContentType: "application/pdf", Data: []byte("%PDF-1.4")})
	assert.EqualError(t, err, classifier.MsgNotImage)

	// undeclared types are sniffed
	assert.NoError(t, classifier.Validate(classifier.Image{Data: pngBytes}))
	err = classifier.Validate(classifier.Image{Data: []byte("just some text")})
	assert.EqualError(t, err, classifier.MsgNotImage)
}

func TestDiagnose_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, pngBytes, data)
		assert.Equal(t, "leaf.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(healthyLeaf))
	}))
	defer server.Close()

	diagnosis, err := newClient(server.URL).Diagnose(context.Background(), classifier.Image{
		Filename: "leaf.png",
		Data:     pngBytes,
	})
	require.NoError(t, err)
	assert.Equal(t, "Powdery Mildew", diagnosis.Condition)
	assert.Equal(t, 87, diagnosis.Confidence)
	assert.Len(t, diagnosis.Solutions, 2)
	assert.False(t, diagnosis.LowConfidence())
	assert.False(t, diagnosis.Urgent())
}

func TestDiagnose_ServerErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field", http.StatusBadRequest, `{"error": "No leaf detected in image"}`, "No leaf detected in image"},
		{"no error field", http.StatusInternalServerError, `{"detail": "boom"}`, classifier.MsgServerError},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, classifier.MsgServerError},
		{"invalid diagnosis", http.StatusOK, `{"condition": "Rust", "severity": "extreme", "confidence": 140}`, classifier.MsgServerError},
		{"undecodable diagnosis", http.StatusOK, `[]`, classifier.MsgServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newClient(server.URL).Diagnose(context.Background(), classifier.Image{ContentType: "image/png", Data: pngBytes})
			var cerr *classifier.Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.message, cerr.Message)
			assert.Equal(t, tt.status, cerr.Status)
			assert.False(t, cerr.Invalid)
		})
	}
}

func TestDiagnose_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newClient(url).Diagnose(context.Background(), classifier.Image{ContentType: "image/png", Data: bytes.Repeat(pngBytes, 2)})
	var cerr *classifier.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, classifier.MsgUnreachable, cerr.Message)
	assert.Zero(t, cerr.Status)
	assert.NotNil(t, cerr.Unwrap())
}
