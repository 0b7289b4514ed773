package sqlinline

const QSelectIntegrationToken = `--sql f30ea624-1720-4d82-97c9-a09995086d09
select token
from integration_tokens
where provider = $1::text;
`

const QUpsertIntegrationToken = `--sql d36f8c90-1252-4b58-b43b-465b92242a98
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`
