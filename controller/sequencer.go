package controller

// nextRequestID returns the next request id of the session: 1, 2, 3, ...
// Ids are never reused and survive namespace switches.
func (c *Controller) nextRequestID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestID++
	return c.requestID
}

// NextRequestID reserves a request id for a two phase send where the caller
// stamps the command itself.
func (c *Controller) NextRequestID() int {
	return c.nextRequestID()
}
