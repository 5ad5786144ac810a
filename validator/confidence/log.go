package confidence

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "confidence")
