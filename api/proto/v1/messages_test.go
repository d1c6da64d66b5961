package pb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestApplyRequest_RoundTrip(t *testing.T) {
	req, err := NewApplyRequest("flatten", []byte(`[[1,2],[3]]`))
	require.NoError(t, err)

	op, payload, err := ParseApplyRequest(req)
	require.NoError(t, err)
	require.Equal(t, "flatten", op)
	require.Equal(t, `[[1,2],[3]]`, string(payload))
}

func TestNewApplyRequest_InvalidJSON(t *testing.T) {
	_, err := NewApplyRequest("flatten", []byte(`[1,`))
	require.Error(t, err)
}

func TestParseApplyRequest_Errors(t *testing.T) {
	_, _, err := ParseApplyRequest(nil)
	require.Error(t, err)

	_, _, err = ParseApplyRequest(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldPayload: structpb.NewStringValue(`3`),
	}})
	require.ErrorContains(t, err, "missing op")

	_, _, err = ParseApplyRequest(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldOp:      structpb.NewNumberValue(1),
		FieldPayload: structpb.NewStringValue(`3`),
	}})
	require.ErrorContains(t, err, "non-empty string")

	_, _, err = ParseApplyRequest(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldOp: structpb.NewStringValue("range_up_to"),
	}})
	require.ErrorContains(t, err, "missing payload")

	_, _, err = ParseApplyRequest(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldOp:      structpb.NewStringValue("range_up_to"),
		FieldPayload: structpb.NewNumberValue(3),
	}})
	require.ErrorContains(t, err, "JSON text")
}

func TestApplyReply_KeepsLargeIntegersExact(t *testing.T) {
	const big = `[9996000599960001,9223372036854775807]`

	req, err := NewApplyRequest("identity_copy", []byte(big))
	require.NoError(t, err)
	_, payload, err := ParseApplyRequest(req)
	require.NoError(t, err)
	require.Equal(t, big, string(payload))

	got, err := ParseApplyReply(NewApplyReply([]byte(big)))
	require.NoError(t, err)
	require.Equal(t, big, string(got))
}

func TestParseApplyReply_RejectsNonText(t *testing.T) {
	_, err := ParseApplyReply(structpb.NewNumberValue(1))
	require.Error(t, err)

	_, err = ParseApplyReply(structpb.NewStringValue(`[1,`))
	require.Error(t, err)
}
