package jackalope

import "slices"

// Credentials identify the user a session is opened for. Authentication is left to the
// backend; the client only carries them.
type Credentials interface {
	credentials()
}

// SimpleCredentials carry a user id, a password and free-form attributes.
type SimpleCredentials struct {
	UserID     string
	Password   []byte
	attributes map[string]any
}

func NewSimpleCredentials(userID string, password []byte) *SimpleCredentials {
	return &SimpleCredentials{UserID: userID, Password: password, attributes: map[string]any{}}
}

func (*SimpleCredentials) credentials() {}

func (c *SimpleCredentials) SetAttribute(name string, value any) {
	if c.attributes == nil {
		c.attributes = map[string]any{}
	}
	if value == nil {
		delete(c.attributes, name)
		return
	}
	c.attributes[name] = value
}

func (c *SimpleCredentials) Attribute(name string) any {
	return c.attributes[name]
}

func (c *SimpleCredentials) AttributeNames() []string {
	names := make([]string, 0, len(c.attributes))
	for name := range c.attributes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GuestCredentials open an anonymous session.
type GuestCredentials struct{}

func (GuestCredentials) credentials() {}
