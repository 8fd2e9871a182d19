package jackalope

// Version of this client, reported as the repository version descriptor.
const Version = "0.1.0"
