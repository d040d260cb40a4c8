package cpp_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/undertaker-go/blockdefect/pkg/cpp"
)

func TestKindJSONRoundTrip(t *testing.T) {
	for _, k := range []cpp.Kind{cpp.If, cpp.Ifdef, cpp.Ifndef, cpp.Elif, cpp.Else, cpp.Endif, cpp.DefineConstant, cpp.Undef} {
		data, err := json.Marshal(k)
		require.NoError(t, err)
		require.Equal(t, `"`+k.String()+`"`, string(data))

		var got cpp.Kind
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, k, got)
	}
}

func TestParseKindRejectsUnknown(t *testing.T) {
	_, err := cpp.ParseKind("Bogus")
	require.Error(t, err)
}

func TestDirectiveDecodesFromJSON(t *testing.T) {
	var d cpp.Directive
	err := json.Unmarshal([]byte(`{"Kind":"Ifdef","Expression":"CONFIG_FOO","Line":3,"Col":1}`), &d)
	require.NoError(t, err)
	require.Equal(t, cpp.Ifdef, d.Kind)
	require.Equal(t, "CONFIG_FOO", d.Expression)
	require.Equal(t, 3, d.Line)
}
