package datastructure

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/tripweaver/tripweaver/pkg"
)

// WriteGraph writes the built transit+walk graph to a bzip2-compressed text
// file so deployments can reload without re-ingesting GTFS/OSM.
func (g *Graph) WriteGraph(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	defer bz.Close()

	w := bufio.NewWriter(bz)
	defer w.Flush()

	fmt.Fprintf(w, "%d %d %d %d %d\n", len(g.nodes), len(g.edges), g.epoch,
		g.numServiceDays, len(g.stationNodes))

	for i := range g.nodes {
		n := &g.nodes[i]
		lat := strconv.FormatFloat(n.lat, 'f', -1, 64)
		lon := strconv.FormatFloat(n.lon, 'f', -1, 64)
		fmt.Fprintf(w, "%s %s %d %d %d\n", lat, lon, n.kind, n.anchor, n.stopIdx)
	}

	for i := range g.edges {
		e := &g.edges[i]
		dist := strconv.FormatFloat(e.distance, 'f', -1, 64)
		fmt.Fprintf(w, "%d %d %d %d %s %d %d %d", e.from, e.to, e.edgeType,
			e.time, dist, e.reverseEdge, e.tripIdx, e.stopSeq)
		if e.validity != nil {
			fmt.Fprintf(w, " %d", len(e.validity.Words()))
			for _, word := range e.validity.Words() {
				fmt.Fprintf(w, " %d", word)
			}
		} else {
			fmt.Fprintf(w, " 0")
		}
		fmt.Fprintf(w, "\n")
	}

	for stopID, node := range g.stationNodes {
		fmt.Fprintf(w, "%s %d\n", stopID, node)
	}

	return nil
}

// ReadGraph reads a graph file written by WriteGraph.
func ReadGraph(filename string) (*Graph, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}

	sc := bufio.NewScanner(bz)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)

	readLine := func() ([]string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("unexpected end of graph file %s", filename)
		}
		return strings.Fields(sc.Text()), nil
	}

	header, err := readLine()
	if err != nil {
		return nil, err
	}
	if len(header) != 5 {
		return nil, fmt.Errorf("malformed graph header in %s", filename)
	}
	numNodes, _ := strconv.Atoi(header[0])
	numEdges, _ := strconv.Atoi(header[1])
	epoch, _ := strconv.ParseInt(header[2], 10, 64)
	numServiceDays, _ := strconv.Atoi(header[3])
	numStations, _ := strconv.Atoi(header[4])

	g := NewGraph()
	g.SetEpoch(epoch, numServiceDays)

	for i := 0; i < numNodes; i++ {
		fields, err := readLine()
		if err != nil {
			return nil, err
		}
		if len(fields) != 5 {
			return nil, fmt.Errorf("malformed node line %d in %s", i, filename)
		}
		lat, _ := strconv.ParseFloat(fields[0], 64)
		lon, _ := strconv.ParseFloat(fields[1], 64)
		kind, _ := strconv.Atoi(fields[2])
		anchor, _ := strconv.Atoi(fields[3])
		stopIdx, _ := strconv.Atoi(fields[4])
		g.AddNode(NewNode(lat, lon, NodeKind(kind), int32(anchor), Index(stopIdx)))
	}

	for i := 0; i < numEdges; i++ {
		fields, err := readLine()
		if err != nil {
			return nil, err
		}
		if len(fields) < 9 {
			return nil, fmt.Errorf("malformed edge line %d in %s", i, filename)
		}
		from, _ := strconv.Atoi(fields[0])
		to, _ := strconv.Atoi(fields[1])
		edgeType, _ := strconv.Atoi(fields[2])
		time, _ := strconv.Atoi(fields[3])
		dist, _ := strconv.ParseFloat(fields[4], 64)
		reverseEdge, _ := strconv.Atoi(fields[5])
		tripIdx, _ := strconv.Atoi(fields[6])
		stopSeq, _ := strconv.Atoi(fields[7])
		numWords, _ := strconv.Atoi(fields[8])

		e := g.AddEdge(Index(from), Index(to), pkg.EdgeType(edgeType), int32(time), dist)
		e.reverseEdge = Index(reverseEdge)
		e.tripIdx = Index(tripIdx)
		e.stopSeq = int32(stopSeq)
		if numWords > 0 {
			if len(fields) != 9+numWords {
				return nil, fmt.Errorf("malformed validity words on edge line %d in %s", i, filename)
			}
			v := NewBitset(numWords * 64)
			words := make([]uint64, numWords)
			for wi := 0; wi < numWords; wi++ {
				words[wi], _ = strconv.ParseUint(fields[9+wi], 10, 64)
			}
			v.SetWords(words)
			e.validity = v
		}
	}

	for i := 0; i < numStations; i++ {
		fields, err := readLine()
		if err != nil {
			return nil, err
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed station line %d in %s", i, filename)
		}
		node, _ := strconv.Atoi(fields[1])
		g.SetStationNode(fields[0], Index(node))
	}

	return g, nil
}
