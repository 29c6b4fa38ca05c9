package region

// NewLocator returns the locator for this platform.
func NewLocator() Locator {
	return MapsLocator{}
}
