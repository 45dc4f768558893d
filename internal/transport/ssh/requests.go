package ssh

// Channel request payloads, RFC 4254 section 6

type ptyRequest struct {
	Term    string
	Columns uint32
	Rows    uint32
	Width   uint32
	Height  uint32
	Modes   string
}

type windowChangeRequest struct {
	Columns uint32
	Rows    uint32
	Width   uint32
	Height  uint32
}

type envRequest struct {
	Name  string
	Value string
}

type signalRequest struct {
	Name string
}

type exitStatusRequest struct {
	Status uint32
}
