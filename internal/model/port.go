package model

// Service is one entry of the port catalog.
type Service struct {
	Port int
	Name string
}

// Catalog is the fixed, ordered list of well-known service ports probed on
// every crawl. Scan output always follows this order.
var Catalog = []Service{
	{Port: 20, Name: "ftp-data"},
	{Port: 21, Name: "ftp"},
	{Port: 22, Name: "ssh"},
	{Port: 23, Name: "telnet"},
	{Port: 25, Name: "smtp"},
	{Port: 80, Name: "http"},
	{Port: 110, Name: "pop3"},
	{Port: 123, Name: "ntp"},
	{Port: 143, Name: "imap"},
	{Port: 194, Name: "irc"},
	{Port: 389, Name: "ldap"},
	{Port: 443, Name: "https"},
	{Port: 993, Name: "imaps"},
	{Port: 3306, Name: "mysql"},
	{Port: 3389, Name: "rdp"},
	{Port: 5222, Name: "xmpp"},
	{Port: 6667, Name: "irc-alt"},
	{Port: 8060, Name: "onioncat"},
	{Port: 8333, Name: "bitcoin"},
}

// CatalogPorts returns the port numbers of Catalog in order.
func CatalogPorts() []int {
	ports := make([]int, len(Catalog))
	for i, s := range Catalog {
		ports[i] = s.Port
	}
	return ports
}

// ServiceName returns the catalog name for port, or "" if it is not listed.
func ServiceName(port int) string {
	for _, s := range Catalog {
		if s.Port == port {
			return s.Name
		}
	}
	return ""
}

// PortStatus is the probe outcome for one port.
type PortStatus struct {
	Number int  `json:"number"`
	Open   bool `json:"status"`
}

// ClosedPorts returns one closed PortStatus per entry of ports, in order.
func ClosedPorts(ports []int) []PortStatus {
	statuses := make([]PortStatus, len(ports))
	for i, p := range ports {
		statuses[i] = PortStatus{Number: p}
	}
	return statuses
}
