package mqtt

// Topics builds the topic names under a common prefix:
//
//	<prefix>/status    online/offline, retained
//	<prefix>/state     session state, retained
//	<prefix>/devices   current device list, retained
//	<prefix>/scan      one message per finished scan
//	<prefix>/error     one message per failed attempt
type Topics struct {
	Prefix string
}

func (t Topics) join(leaf string) string {
	if t.Prefix == "" {
		return leaf
	}
	return t.Prefix + "/" + leaf
}

// Status returns the client availability topic.
func (t Topics) Status() string { return t.join("status") }

// State returns the session state topic.
func (t Topics) State() string { return t.join("state") }

// Devices returns the device list topic.
func (t Topics) Devices() string { return t.join("devices") }

// Scan returns the finished-scan topic.
func (t Topics) Scan() string { return t.join("scan") }

// Error returns the failed-attempt topic.
func (t Topics) Error() string { return t.join("error") }
