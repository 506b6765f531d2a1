// Package cluster groups demand points geographically before the scheduler
// assigns them to vehicles. Clustering prunes the assignment search space and
// keeps each vehicle's first pass geographically cohesive.
package cluster

import (
	"log"
	"math"
	"sort"

	"wco-route-planner/internal/geo"
	"wco-route-planner/internal/models"
)

// GeographicCluster is a transient k-means group of locations
type GeographicCluster struct {
	ID        string
	Locations []*models.Location
	TotalWCO  float64
	CenterLat float64
	CenterLng float64
	TotalTime float64
}

// Clusterer runs balanced k-means over location coordinates and scores
// candidate clusterings for cohesion.
type Clusterer struct {
	TargetClusters    int
	CapacityThreshold float64
	MaxTimePerStop    float64
	SpeedKPH          float64
}

// NewClusterer creates a clusterer with the default thresholds
func NewClusterer(targetClusters int) *Clusterer {
	if targetClusters <= 0 {
		targetClusters = 5
	}
	return &Clusterer{
		TargetClusters:    targetClusters,
		CapacityThreshold: 2000,
		MaxTimePerStop:    7.0,
		SpeedKPH:          geo.AverageSpeedKPH,
	}
}

// ClusterLocations clusters the locations, trying k in [2, min(N, target)]
// and keeping the k with the lowest score. pureGeographic restricts scoring
// to geographic cohesion; otherwise capacity, time and traffic terms are
// added. A single location yields one degenerate cluster.
func (c *Clusterer) ClusterLocations(locations []*models.Location, pureGeographic bool) []GeographicCluster {
	if len(locations) == 0 {
		return nil
	}

	maxClusters := c.TargetClusters
	if len(locations) < maxClusters {
		maxClusters = len(locations)
	}
	if maxClusters < 2 {
		return []GeographicCluster{c.buildCluster(0, locations)}
	}

	points := make([]point, len(locations))
	for i, loc := range locations {
		points[i] = point{lat: loc.Lat, lng: loc.Lng}
	}

	var bestGroups map[int][]*models.Location
	bestScore := math.Inf(1)

	for k := 2; k <= maxClusters; k++ {
		labels := kMeans(points, k)

		groups := make(map[int][]*models.Location)
		for i, label := range labels {
			groups[label] = append(groups[label], locations[i])
		}

		score := c.scoreGeographic(groups, len(locations))
		if !pureGeographic {
			score += c.scoreConstraints(groups)
		}

		if score < bestScore {
			bestScore = score
			bestGroups = groups
		}
	}

	result := make([]GeographicCluster, 0, len(bestGroups))
	for label, members := range bestGroups {
		result = append(result, c.buildCluster(label, members))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	log.Printf("[CLUSTER] %d locations grouped into %d clusters (score=%.4f)", len(locations), len(result), bestScore)
	return result
}

func (c *Clusterer) buildCluster(label int, members []*models.Location) GeographicCluster {
	sort.Slice(members, func(i, j int) bool {
		if members[i].WCOAmount != members[j].WCOAmount {
			return members[i].WCOAmount > members[j].WCOAmount
		}
		if members[i].Lat != members[j].Lat {
			return members[i].Lat < members[j].Lat
		}
		return members[i].Lng < members[j].Lng
	})

	cluster := GeographicCluster{
		ID:        string(rune('A' + label)),
		Locations: members,
	}
	for _, loc := range members {
		cluster.TotalWCO += loc.WCOAmount
		cluster.CenterLat += loc.Lat
		cluster.CenterLng += loc.Lng
		cluster.TotalTime += geo.EstimateCollectionTime(loc, c.MaxTimePerStop)
	}
	if len(members) > 0 {
		cluster.CenterLat /= float64(len(members))
		cluster.CenterLng /= float64(len(members))
	}
	return cluster
}

// scoreGeographic penalizes spread-out clusters, outliers and size imbalance.
// Radii are in degree space; only relative magnitude matters.
func (c *Clusterer) scoreGeographic(groups map[int][]*models.Location, total int) float64 {
	score := 0.0
	idealSize := float64(total) / float64(len(groups))

	for _, members := range groups {
		meanRadius, maxRadius := clusterRadii(members)
		score += meanRadius * 3.0
		score += maxRadius * 2.0

		sizeDeviation := math.Abs(float64(len(members))-idealSize) / idealSize
		score += sizeDeviation * 0.5
	}
	return score
}

// scoreConstraints adds capacity balance, time budget and traffic terms
func (c *Clusterer) scoreConstraints(groups map[int][]*models.Location) float64 {
	score := 0.0
	for _, members := range groups {
		totalWCO := 0.0
		totalTime := 0.0
		for _, loc := range members {
			totalWCO += loc.WCOAmount
			totalTime += geo.EstimateCollectionTime(loc, c.MaxTimePerStop)
		}

		score += math.Abs(totalWCO-c.CapacityThreshold) / c.CapacityThreshold
		score += math.Max(0, totalTime-c.MaxTimePerStop*float64(len(members)))

		meanRadius, _ := clusterRadii(members)
		score += meanRadius / c.SpeedKPH
	}
	return score
}

func clusterRadii(members []*models.Location) (mean, max float64) {
	if len(members) == 0 {
		return 0, 0
	}
	var centerLat, centerLng float64
	for _, loc := range members {
		centerLat += loc.Lat
		centerLng += loc.Lng
	}
	centerLat /= float64(len(members))
	centerLng /= float64(len(members))

	sum := 0.0
	for _, loc := range members {
		d := math.Hypot(loc.Lat-centerLat, loc.Lng-centerLng)
		sum += d
		if d > max {
			max = d
		}
	}
	return sum / float64(len(members)), max
}

// LogClusterAnalysis prints a per-cluster breakdown the way operators expect
// to read it during tuning.
func (c *Clusterer) LogClusterAnalysis(clusters []GeographicCluster) {
	for _, cl := range clusters {
		log.Printf("[CLUSTER] %s: locations=%d wco=%.2fL center=(%.6f,%.6f) time=%.1fmin",
			cl.ID, len(cl.Locations), cl.TotalWCO, cl.CenterLat, cl.CenterLng, cl.TotalTime)
	}
}
