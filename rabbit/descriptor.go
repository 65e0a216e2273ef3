package rabbit

import (
	"net"
	"net/url"
	"strconv"

	"github.com/circleci/testdriver/config/secret"
)

// Descriptor says where a broker is and which virtual host to talk to.
type Descriptor struct {
	Host     string
	Port     int
	VHost    string
	Username string
	Password secret.String
}

// NewDescriptor uses the broker's default guest credentials.
func NewDescriptor(host string, port int, vhost string) Descriptor {
	if vhost == "" {
		vhost = "/"
	}
	return Descriptor{
		Host:     host,
		Port:     port,
		VHost:    vhost,
		Username: "guest",
		Password: "guest",
	}
}

// URL is the AMQP URL including credentials. The virtual host is path escaped, so
// the default "/" becomes %2F.
func (d Descriptor) URL() secret.String {
	return secret.String(d.url(url.UserPassword(d.Username, d.Password.Raw())))
}

// String is the URL with the password redacted.
func (d Descriptor) String() string {
	return d.url(url.UserPassword(d.Username, d.Password.String()))
}

func (d Descriptor) url(user *url.Userinfo) string {
	u := url.URL{
		Scheme: "amqp",
		User:   user,
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.VHost,
		// RawPath keeps the slash in "/" escaped
		RawPath: "/" + url.PathEscape(d.VHost),
	}
	return u.String()
}
