package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/postal-lookup/pkg/browser/browsertest"
)

const field = "#field"

func newTestForm(p *browsertest.Page) *Form {
	return NewForm(p, NoPacing(), nil)
}

func TestSelectAutocomplete_AcceptsSuperset(t *testing.T) {
	p := browsertest.NewPage()
	p.Set(field, &browsertest.Element{
		Suggest: func(string, int) string { return "santiago centro " },
	})

	err := newTestForm(p).SelectAutocomplete(context.Background(), field, "SANTIAGO", "commune", 2)
	require.NoError(t, err)

	assert.Equal(t, 1, p.CountCalls("Fill "))
	assert.Equal(t, []string{
		"Click #field force=false",
		"Fill #field=SANTIAGO",
		"Press ArrowDown",
		"Press Enter",
		"InputValue #field",
	}, p.Calls())
}

func TestSelectAutocomplete_RetryBound(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		wantFills  int
	}{
		{name: "default of two", maxRetries: 2, wantFills: 2},
		{name: "three attempts", maxRetries: 3, wantFills: 3},
		{name: "zero is treated as one", maxRetries: 0, wantFills: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := browsertest.NewPage()
			p.Set(field, &browsertest.Element{
				Suggest: func(string, int) string { return "LAS CONDES" },
			})

			err := newTestForm(p).SelectAutocomplete(context.Background(), field, "SANTIAGO", "commune", tt.maxRetries)
			require.Error(t, err)

			var lookupErr *Error
			require.ErrorAs(t, err, &lookupErr)
			assert.Equal(t, KindSelectionFailed, lookupErr.Kind)
			assert.Equal(t, "commune", lookupErr.Label)
			assert.Equal(t, tt.wantFills, p.CountCalls("Fill "))
			assert.Equal(t, tt.wantFills, p.CountCalls("InputValue "))
		})
	}
}

func TestSelectAutocomplete_FailureMessage(t *testing.T) {
	p := browsertest.NewPage()
	p.Set(field, &browsertest.Element{
		Suggest: func(string, int) string { return "" },
	})

	err := newTestForm(p).SelectAutocomplete(context.Background(), field, "PROVIDENCIA", "street", 2)
	assert.EqualError(t, err, "Failed to select street correctly after 2 attempts.")
}

func TestSelectAutocomplete_SucceedsOnRetry(t *testing.T) {
	p := browsertest.NewPage()
	p.Set(field, &browsertest.Element{
		Suggest: func(typed string, attempt int) string {
			if attempt == 1 {
				return ""
			}
			return typed
		},
	})

	err := newTestForm(p).SelectAutocomplete(context.Background(), field, "NUNOA", "commune", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.CountCalls("Fill "))
}

func TestSelectAutocomplete_DriverErrorAborts(t *testing.T) {
	p := browsertest.NewPage()

	err := newTestForm(p).SelectAutocomplete(context.Background(), "#missing", "NUNOA", "commune", 3)
	require.Error(t, err)
	assert.Equal(t, KindUnknownFault, KindOf(err))
	assert.Equal(t, 1, p.CountCalls("Click "))
	assert.Equal(t, 0, p.CountCalls("Fill "))
}

func TestFillVerified(t *testing.T) {
	tests := []struct {
		name    string
		echo    func(string) string
		value   string
		wantErr string
	}{
		{
			name:  "exact echo",
			value: "2222",
		},
		{
			name:  "surrounding whitespace is ignored",
			echo:  func(v string) string { return " " + v + " " },
			value: "2222",
		},
		{
			name:    "truncated echo is rejected",
			echo:    func(string) string { return "123 " },
			value:   "1234",
			wantErr: "Number field not filled correctly: expected '1234', got '123'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := browsertest.NewPage()
			p.Set(field, &browsertest.Element{EchoFill: tt.echo})

			err := newTestForm(p).FillVerified(context.Background(), field, tt.value, "number")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
			assert.Equal(t, KindFillMismatch, KindOf(err))
			assert.Equal(t, 1, p.CountCalls("Fill "), "plain fills are never retried")
		})
	}
}

func TestPollEnabled(t *testing.T) {
	t.Run("returns once enabled", func(t *testing.T) {
		p := browsertest.NewPage()
		p.Set(field, &browsertest.Element{EnableAfter: 5})

		err := newTestForm(p).PollEnabled(context.Background(), field, "search button", 20, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 5, p.Checks(field))
	})

	t.Run("times out after exactly maxAttempts checks", func(t *testing.T) {
		p := browsertest.NewPage()
		p.Set(field, &browsertest.Element{EnableAfter: -1})

		err := newTestForm(p).PollEnabled(context.Background(), field, "search button", 20, time.Millisecond)
		assert.EqualError(t, err, "Search button did not become enabled in time.")
		assert.Equal(t, KindTimeout, KindOf(err))
		assert.Equal(t, 20, p.Checks(field))
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		p := browsertest.NewPage()
		p.Set(field, &browsertest.Element{EnableAfter: -1})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := newTestForm(p).PollEnabled(ctx, field, "search button", 20, time.Hour)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, 0, p.Checks(field))
	})
}

func TestExtractResult(t *testing.T) {
	t.Run("trims visible text", func(t *testing.T) {
		p := browsertest.NewPage()
		p.Set(field, &browsertest.Element{Visible: true, Text: "\n 7500000 \n"})

		text, err := newTestForm(p).ExtractResult(context.Background(), field, time.Second)
		require.NoError(t, err)
		assert.Equal(t, "7500000", text)
	})

	t.Run("hidden result times out", func(t *testing.T) {
		p := browsertest.NewPage()
		p.Set(field, &browsertest.Element{Text: "7500000"})

		_, err := newTestForm(p).ExtractResult(context.Background(), field, time.Second)
		require.Error(t, err)
		assert.Equal(t, KindTimeout, KindOf(err))
		assert.Equal(t, 0, p.CountCalls("InnerText "))
	})
}
