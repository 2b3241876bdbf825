package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdfconv/internal/domain"
	"github.com/spherical/pdfconv/internal/llm"
)

func collect(st *Stream) []string {
	var got []string
	for csv := range st.Chunks() {
		got = append(got, csv)
	}
	return got
}

func TestConvertStream_AllChunks(t *testing.T) {
	f := newFixture(3, ok("h,v\n1,2"), ok("h,v\n3,4"), ok("h,v\n5,6"))
	req := request("out.csv")
	req.Config.RemoveHeaderOnContinuation = true

	st, err := f.svc.ConvertStream(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatePending, st.State())
	assert.Equal(t, 3, st.ChunksTotal())

	got := collect(st)

	assert.Equal(t, []string{"h,v\n1,2", "3,4", "5,6"}, got)
	assert.Equal(t, StateCompleted, st.State())
	assert.True(t, st.CompletedFully())
	assert.NoError(t, st.Err())
	assert.Equal(t, "h,v\n1,2\n3,4\n5,6", st.CSV())

	w := f.sink.writers["out.csv"]
	require.NotNil(t, w)
	assert.True(t, w.closed)
	assert.Equal(t, "h,v\n1,2\n3,4\n5,6", w.String())
	assert.Empty(t, f.sink.files)
}

func TestConvertStream_StopsAtFailedChunk(t *testing.T) {
	f := newFixture(4, ok("a"), ok("b"), fail("boom"), ok("d"))

	st, err := f.svc.ConvertStream(context.Background(), request("out.csv"))
	require.NoError(t, err)

	got := collect(st)

	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, StateFailed, st.State())
	assert.False(t, st.CompletedFully())

	var failed *domain.ConversionFailedError
	require.ErrorAs(t, st.Err(), &failed)
	assert.Equal(t, 2, failed.ChunkIndex)

	assert.Equal(t, map[string]string{"out.csv.partial_2": "a\nb"}, f.sink.files)
	assert.Len(t, f.invoker.calls, 3)

	w := f.sink.writers["out.csv"]
	require.NotNil(t, w)
	assert.True(t, w.closed)
	assert.Equal(t, "a\nb", w.String())
}

func TestConvertStream_FirstChunkFails(t *testing.T) {
	f := newFixture(2, fail("boom"))

	st, err := f.svc.ConvertStream(context.Background(), request("out.csv"))
	require.NoError(t, err)

	assert.Empty(t, collect(st))
	assert.Equal(t, StateFailed, st.State())
	assert.ErrorIs(t, st.Err(), domain.ErrConversionFailed)
	assert.Empty(t, f.sink.files)
	assert.True(t, f.sink.writers["out.csv"].closed)
}

func TestConvertStream_ConsumerBreaksEarly(t *testing.T) {
	f := newFixture(3, ok("a"), ok("b"), ok("c"))

	st, err := f.svc.ConvertStream(context.Background(), request("out.csv"))
	require.NoError(t, err)

	for csv := range st.Chunks() {
		assert.Equal(t, "a", csv)
		break
	}

	assert.Equal(t, StateAbandoned, st.State())
	assert.False(t, st.CompletedFully())
	assert.Len(t, f.invoker.calls, 1)
	assert.True(t, f.sink.writers["out.csv"].closed)
	assert.Equal(t, "a", st.CSV())
}

func TestConvertStream_ConsumerPanicClosesOutput(t *testing.T) {
	f := newFixture(2, ok("a"), ok("b"))

	st, err := f.svc.ConvertStream(context.Background(), request("out.csv"))
	require.NoError(t, err)

	assert.Panics(t, func() {
		for range st.Chunks() {
			panic("consumer bug")
		}
	})

	assert.Equal(t, StateAbandoned, st.State())
	assert.True(t, f.sink.writers["out.csv"].closed)
}

func TestConvertStream_SingleUse(t *testing.T) {
	f := newFixture(1, ok("a"))

	st, err := f.svc.ConvertStream(context.Background(), request(""))
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, collect(st))
	assert.Empty(t, collect(st))
	assert.Len(t, f.invoker.calls, 1)
}

func TestConvertStream_OutputOpenFailureIsNotFatal(t *testing.T) {
	f := newFixture(2, ok("a"), ok("b"))
	f.sink.failAll = true

	st, err := f.svc.ConvertStream(context.Background(), request("out.csv"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, collect(st))
	assert.True(t, st.CompletedFully())
}

func TestConvertStream_SetupError(t *testing.T) {
	f := newFixture(1)
	req := request("")
	req.Provider = llm.Provider("acme")

	st, err := f.svc.ConvertStream(context.Background(), req)
	assert.Nil(t, st)
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "abandoned", StateAbandoned.String())
	assert.Equal(t, "State(42)", State(42).String())
}
