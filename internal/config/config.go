package config

// WriteConfig contains settings from the [write] section.
type WriteConfig struct {
	OutputDir      string
	MaxConcurrency int
	NoClobber      bool
	KeepGoing      bool
}

// ForWrite returns configuration for write mode.
func (l *Loader) ForWrite() (c WriteConfig) {
	sec, err := l.file().GetSection("write")
	if err != nil {
		return c
	}

	c.OutputDir = sec.Key("output-dir").String()
	c.MaxConcurrency = sec.Key("max-concurrency").MustInt(0)
	c.NoClobber = sec.Key("no-clobber").MustBool(false)
	c.KeepGoing = sec.Key("keep-going").MustBool(false)
	return
}

// ReadConfig contains settings from the [read] section.
type ReadConfig struct {
	Strict bool
}

// ForRead returns configuration for read mode.
func (l *Loader) ForRead() (c ReadConfig) {
	sec, err := l.file().GetSection("read")
	if err != nil {
		return c
	}

	c.Strict = sec.Key("strict").MustBool(false)
	return
}

// S3Config contains settings from the [s3] section.
type S3Config struct {
	AWSProfile          string
	ExpectedBucketOwner *string
}

// ForS3 returns configuration for S3 inputs and outputs.
func (l *Loader) ForS3() (c S3Config) {
	sec, err := l.file().GetSection("s3")
	if err != nil {
		return c
	}

	c.AWSProfile = sec.Key("aws-profile").String()
	if sec.HasKey("expected-bucket-owner") {
		v := sec.Key("expected-bucket-owner").String()
		c.ExpectedBucketOwner = &v
	}
	return
}
