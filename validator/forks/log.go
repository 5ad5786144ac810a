package forks

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "forks")
