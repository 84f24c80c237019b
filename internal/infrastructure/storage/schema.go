package storage

// Schema is created idempotently at startup. articles_included on deliveries
// is a denormalized JSON array of article ids, scanned via json_each when
// excluding already-delivered articles from the next digest.
const schema = `
CREATE TABLE IF NOT EXISTS articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    headline TEXT NOT NULL,
    url TEXT UNIQUE NOT NULL,
    source TEXT NOT NULL,
    pub_date TEXT,
    full_text TEXT,
    processed_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS classifications (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    article_id INTEGER NOT NULL,
    relevance_score INTEGER,
    category TEXT,
    product_impact TEXT,
    summary TEXT,
    llm_response TEXT,
    created_at TEXT DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (article_id) REFERENCES articles(id)
);

CREATE TABLE IF NOT EXISTS threat_assessments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    article_id INTEGER NOT NULL,
    threat_level TEXT,
    product_impact TEXT,
    action_recommendation TEXT,
    reviewed_by TEXT,
    reviewed_at TEXT,
    FOREIGN KEY (article_id) REFERENCES articles(id),
    UNIQUE(article_id)
);

CREATE TABLE IF NOT EXISTS deliveries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    delivery_type TEXT NOT NULL,
    delivery_date TEXT NOT NULL,
    channel TEXT NOT NULL,
    message_id TEXT,
    articles_included TEXT,
    created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_articles_url ON articles(url);
CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);
CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON articles(pub_date);
CREATE INDEX IF NOT EXISTS idx_classifications_article_id ON classifications(article_id);
CREATE INDEX IF NOT EXISTS idx_threat_assessments_article_id ON threat_assessments(article_id);
CREATE INDEX IF NOT EXISTS idx_threat_assessments_reviewed_at ON threat_assessments(reviewed_at);
`
