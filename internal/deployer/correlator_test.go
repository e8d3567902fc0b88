package deployer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClusterByFunderGroupsDirectDeployers(t *testing.T) {
	edges := []funderEdgeRow{
		{funder: "F1", deployer: "D1"},
		{funder: "F1", deployer: "D2"},
		{funder: "F2", deployer: "D3"},
	}
	clusters := clusterByFunder(edges, 2)

	byRoot := map[string]cluster{}
	for _, c := range clusters {
		byRoot[c.root] = c
	}
	assert.Len(t, clusters, 2)
	assert.True(t, byRoot["F1"].deployers["D1"])
	assert.True(t, byRoot["F1"].deployers["D2"])
	assert.True(t, byRoot["F2"].deployers["D3"])
}

func TestClusterByFunderTransitiveWithinDepth(t *testing.T) {
	// F1 funds D1, and D1 in turn funds D2: D2 is two hops from F1.
	edges := []funderEdgeRow{
		{funder: "F1", deployer: "D1"},
		{funder: "D1", deployer: "D2"}, // D1 itself later funds D2
	}
	clusters := clusterByFunder(edges, 2)
	require := assert.New(t)
	var found bool
	for _, c := range clusters {
		if c.root == "F1" {
			found = true
			require.True(c.deployers["D1"])
			require.True(c.deployers["D2"])
		}
	}
	require.True(found)
}

func TestClusterByFunderRespectsDepthBound(t *testing.T) {
	// A chain of funder->deployer->funder hops longer than depth=0 should
	// not reach beyond the immediate deployers of the root.
	edges := []funderEdgeRow{
		{funder: "F1", deployer: "D1"},
		{funder: "D1", deployer: "D2"},
	}
	clusters := clusterByFunder(edges, 0)
	for _, c := range clusters {
		if c.root == "F1" {
			assert.True(t, c.deployers["D1"])
			assert.False(t, c.deployers["D2"])
		}
	}
}

func TestClusterByFunderNoEdgesProducesNoClusters(t *testing.T) {
	clusters := clusterByFunder(nil, 2)
	assert.Empty(t, clusters)
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, "high", severityFor(10, 0.8))
	assert.Equal(t, "high", severityFor(20, 0.95))
	// 7 deployed contracts, 5 high-risk (ratio ~0.714): spec scenario S6.
	assert.Equal(t, "high", severityFor(7, 5.0/7.0))
	assert.Equal(t, "medium", severityFor(3, 0.6))
	assert.Equal(t, "medium", severityFor(5, 0.7))
	assert.Equal(t, "low", severityFor(3, 0.5))
	assert.Equal(t, "low", severityFor(2, 1.0))
}
