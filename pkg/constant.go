package pkg

// enum of edge_type in the transit+walk multigraph.
// street edges are HIGHWAY, everything else belongs to the time-expanded
// public-transit subnetwork built per stop.
type EdgeType uint8

const (
	HIGHWAY EdgeType = iota
	ENTER_PT
	EXIT_PT
	ENTER_TIME_EXPANDED_NETWORK
	LEAVE_TIME_EXPANDED_NETWORK
	STOP_NODE_MARKER
	STOP_ENTER_NODE
	STOP_EXIT_NODE
	HOP
	DWELL
	BOARD
	ALIGHT
	OVERNIGHT
	TRANSFER
	WAIT
	WAIT_ARRIVAL

	NUM_EDGE_TYPES = int(WAIT_ARRIVAL) + 1
)

func (t EdgeType) String() string {
	switch t {
	case HIGHWAY:
		return "HIGHWAY"
	case ENTER_PT:
		return "ENTER_PT"
	case EXIT_PT:
		return "EXIT_PT"
	case ENTER_TIME_EXPANDED_NETWORK:
		return "ENTER_TIME_EXPANDED_NETWORK"
	case LEAVE_TIME_EXPANDED_NETWORK:
		return "LEAVE_TIME_EXPANDED_NETWORK"
	case STOP_NODE_MARKER:
		return "STOP_NODE_MARKER"
	case STOP_ENTER_NODE:
		return "STOP_ENTER_NODE"
	case STOP_EXIT_NODE:
		return "STOP_EXIT_NODE"
	case HOP:
		return "HOP"
	case DWELL:
		return "DWELL"
	case BOARD:
		return "BOARD"
	case ALIGHT:
		return "ALIGHT"
	case OVERNIGHT:
		return "OVERNIGHT"
	case TRANSFER:
		return "TRANSFER"
	case WAIT:
		return "WAIT"
	case WAIT_ARRIVAL:
		return "WAIT_ARRIVAL"
	default:
		return "UNKNOWN"
	}
}

const (
	SECONDS_PER_DAY int64 = 86400

	// search defaults, same values the GTFS request contract specifies
	DEFAULT_WALK_SPEED_KMH    = 5.0
	DEFAULT_MAX_VISITED_NODES = 1_000_000
	DEFAULT_SNAP_RADIUS_KM    = 1.0

	// virtual origin/destination node ids are allocated at
	// graph.NumberOfNodes() + VIRTUAL_NODE_ID_GAP + endpointIndex
	VIRTUAL_NODE_ID_GAP = 1000
)

const (
	DEBUG = false
)
