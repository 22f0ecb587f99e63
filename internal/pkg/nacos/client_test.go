package nacos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerConfigs(t *testing.T) {
	cfgs, err := ParseServerConfigs("nacos-1:8848, nacos-2:9848,")
	require.NoError(t, err)
	require.Len(t, cfgs, 2)
	assert.Equal(t, "nacos-1", cfgs[0].IpAddr)
	assert.Equal(t, uint64(8848), cfgs[0].Port)
	assert.Equal(t, "nacos-2", cfgs[1].IpAddr)
	assert.Equal(t, uint64(9848), cfgs[1].Port)
}

func TestParseServerConfigsRejectsBadInput(t *testing.T) {
	for _, addrs := range []string{"", "nacos-1", ":8848", "nacos-1:http"} {
		_, err := ParseServerConfigs(addrs)
		assert.Error(t, err, addrs)
	}
}
